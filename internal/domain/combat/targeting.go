package combat

import (
	"sort"

	"tsu-tactics/internal/pkg/xerrors"
)

// TargetKind 请求中的目标类型
type TargetKind string

const (
	TargetKindSelf      TargetKind = "self"
	TargetKindCombatant TargetKind = "combatant"
	TargetKindTile      TargetKind = "tile"
)

// TargetRequest 施法目标
type TargetRequest struct {
	Kind        TargetKind `json:"kind"`
	CombatantID string     `json:"combatant_id,omitempty"`
	X           int        `json:"x,omitempty"`
	Y           int        `json:"y,omitempty"`
}

// Resolution 目标解析结果
type Resolution struct {
	Point    Position
	Primary  *Combatant
	Targets  []*Combatant
	Distance float64
}

// TargetIDs 目标 ID 列表
func (r *Resolution) TargetIDs() []string {
	ids := make([]string, len(r.Targets))
	for i, t := range r.Targets {
		ids[i] = t.ID
	}
	return ids
}

// ResolveTargets 校验并展开目标。所有检查都在任何修改之前完成
func ResolveTargets(actor *Combatant, skill *Skill, req TargetRequest, roster *Roster, board *Board) (*Resolution, error) {
	revives := skill.Revives()
	res := &Resolution{}

	switch req.Kind {
	case TargetKindSelf:
		res.Point, res.Primary = actor.Pos, actor
	case TargetKindCombatant:
		c, ok := roster.Get(req.CombatantID)
		if !ok {
			return nil, xerrors.NewCombatantNotFoundError(req.CombatantID)
		}
		if c.IsAlive == revives {
			if revives {
				return nil, xerrors.FromCode(xerrors.CodeInvalidTarget).WithMetadata("combatant_id", c.ID)
			}
			return nil, xerrors.FromCode(xerrors.CodeTargetNotAlive).WithMetadata("combatant_id", c.ID)
		}
		res.Point, res.Primary = c.Pos, c
	case TargetKindTile:
		res.Point = Position{X: req.X, Y: req.Y}
		if !board.InBounds(res.Point) {
			return nil, xerrors.FromCode(xerrors.CodeInvalidTarget).WithMetadata("x", req.X).WithMetadata("y", req.Y)
		}
		if revives {
			res.Primary, _ = roster.DeadAt(res.Point)
		} else if c, ok := roster.At(res.Point); ok {
			res.Primary = c
		}
	default:
		return nil, xerrors.NewValidationError("target.kind", "目标类型必须是 self、combatant 或 tile")
	}

	switch skill.Targeting {
	case TargetSelf:
		if res.Primary != actor {
			return nil, xerrors.FromCode(xerrors.CodeInvalidTarget).WithMetadata("reason", "self skill")
		}
	case TargetSingle:
		if res.Primary == nil {
			return nil, xerrors.FromCode(xerrors.CodeInvalidTarget).WithMetadata("reason", "no combatant on tile")
		}
	}

	metric := skill.Metric()
	res.Distance = metric.Distance(actor.Pos, res.Point)
	if res.Distance > float64(skill.RangeTiles) && res.Primary != actor {
		return nil, xerrors.NewOutOfRangeError(res.Distance, skill.RangeTiles)
	}
	if skill.Params.RequiresLOS && !board.HasLineOfSight(actor.Pos, res.Point) {
		return nil, xerrors.FromCode(xerrors.CodeLineOfSightBlocked)
	}

	res.Targets = expandShape(actor, skill, res, roster, board)

	if _, ok := findEffect[*TeleportEffect](skill.Effects); ok {
		if board.IsBlocked(res.Point) || (res.Point != actor.Pos && roster.Occupied(res.Point)) {
			return nil, xerrors.FromCode(xerrors.CodeTileBlocked).WithMetadata("x", res.Point.X).WithMetadata("y", res.Point.Y)
		}
	}
	if skill.NeedsTargets() && len(res.Targets) == 0 {
		return nil, xerrors.FromCode(xerrors.CodeNoValidTargets)
	}
	return res, nil
}

func expandShape(actor *Combatant, skill *Skill, res *Resolution, roster *Roster, board *Board) []*Combatant {
	shape := skill.Shape()
	switch shape {
	case TargetSelf:
		return []*Combatant{actor}
	case TargetSingle, TargetTile, "":
		if res.Primary == nil {
			return nil
		}
		return []*Combatant{res.Primary}
	}

	revives := skill.Revives()
	metric := skill.Metric()
	p := skill.Params
	length := p.Length
	if length <= 0 {
		length = skill.RangeTiles
	}

	var line []Position
	if shape == TargetLine {
		line = board.LineCells(actor.Pos, res.Point, length, p.BlocksOnWalls)
	}

	var out []*Combatant
	for _, c := range roster.All() {
		if c.IsAlive == revives {
			continue
		}
		if c == actor {
			continue
		}
		if !sideMatches(actor, c, skill.Affects()) {
			continue
		}
		hit := false
		switch shape {
		case TargetArea:
			hit = metric.Distance(res.Point, c.Pos) <= float64(p.Radius)
		case TargetLine:
			hit = InLineWidth(line, c.Pos, p.Width)
		case TargetCone:
			hit = InCone(actor.Pos, res.Point, c.Pos, length, p.Width, metric)
		}
		if hit {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if p.IncludeSelf && actor.IsAlive != revives {
		out = append([]*Combatant{actor}, out...)
	}
	return out
}

func sideMatches(actor, target *Combatant, affects Affects) bool {
	switch affects {
	case AffectsAll:
		return true
	case AffectsAllies:
		return actor.Side() == target.Side()
	default:
		return actor.Side() != target.Side()
	}
}
