package combat

import (
	"fmt"
	"math"
)

// applySkill 扣除消耗、设置冷却后按固定顺序结算效果。调用前必须已通过校验
func (b *Battle) applySkill(actor *Combatant, skill *Skill, res *Resolution) {
	turn := b.turn()
	base := fmt.Sprintf("%s:%d:%s:%s", b.Session.ID, turn, actor.ID, skill.ID)

	if skill.Cost > 0 {
		actor.Power -= min(skill.Cost, actor.Power)
	}
	actor.SetCooldown(skill.ID, turn, skill.CooldownTurns)
	b.Events.Append(turn, EventSkillUsed, actor.ID, map[string]any{
		"skill_id":   skill.ID,
		"skill_key":  skill.Key,
		"target":     res.Point,
		"target_ids": res.TargetIDs(),
		"cost":       skill.Cost,
		"distance":   res.Distance,
	})

	for _, effect := range orderedEffects(skill.Effects) {
		switch e := effect.(type) {
		case *MoveEffect:
			b.applyMove(actor, res.Point, e)
		case *TeleportEffect:
			b.applyTeleport(actor, res.Point)
		case *PullEffect:
			for _, t := range res.Targets {
				if t != actor && t.IsAlive {
					b.applyForcedMove(actor, t, e.Tiles, true)
				}
			}
		case *PushEffect:
			for _, t := range res.Targets {
				if t != actor && t.IsAlive {
					b.applyForcedMove(actor, t, e.Tiles, false)
				}
			}
		case *BarrierEffect:
			b.applyBarrier(actor, skill, e)
		case *SelfDebuffEffect:
			actor.ApplyStatus(StatusEntry{
				ID:          e.StatusID,
				ExpiresTurn: ExpiresAt(turn, e.Duration),
				Stacks:      e.Stacks,
				Data:        copyData(e.Data),
			})
			b.Events.Append(turn, EventStatusApplied, actor.ID, map[string]any{
				"target_id": actor.ID,
				"status_id": e.StatusID,
				"self":      true,
			})
		case *BonusEffect:
			actor.ApplyStatus(StatusEntry{
				ID:          CritBonusID,
				ExpiresTurn: b.ownTurnsExpiry(e.Duration),
				Data:        map[string]any{DataAmount: e.CritBonus},
			})
			b.Events.Append(turn, EventStatusApplied, actor.ID, map[string]any{
				"target_id": actor.ID,
				"status_id": CritBonusID,
				"amount":    e.CritBonus,
			})
		case *ArmorShredEffect:
			for _, t := range res.Targets {
				if !t.IsAlive {
					continue
				}
				shred := min(e.Amount, t.Armor)
				t.Armor -= shred
				b.Events.Append(turn, EventArmorShred, actor.ID, map[string]any{
					"target_id": t.ID,
					"amount":    shred,
					"armor":     t.Armor,
				})
			}
		case *DamageEffect:
			b.applyDamage(actor, skill, res, e, base)
		case *StatusEffect:
			b.applyStatus(actor, res, e, base)
		case *PowerDrainEffect:
			for _, t := range res.Targets {
				if !t.IsAlive || t == actor {
					continue
				}
				drained := min(e.Amount, t.Power)
				t.Power -= drained
				gained := min(drained, actor.PowerMax-actor.Power)
				actor.Power += gained
				b.Events.Append(turn, EventPowerDrain, actor.ID, map[string]any{
					"target_id": t.ID,
					"drained":   drained,
					"gained":    gained,
				})
			}
		case *HealEffect:
			amount := e.Amount + int(math.Round(float64(actor.Stats.Support)*e.Multiplier))
			for _, t := range res.Targets {
				if !t.IsAlive {
					continue
				}
				healed := t.Heal(amount)
				b.Events.Append(turn, EventHealed, actor.ID, map[string]any{
					"target_id": t.ID,
					"amount":    healed,
					"hp":        t.HP,
				})
			}
		case *CleanseEffect:
			for _, t := range res.Targets {
				if !t.IsAlive {
					continue
				}
				removed := t.Cleanse(e.IDs)
				b.Events.Append(turn, EventCleanse, actor.ID, map[string]any{
					"target_id": t.ID,
					"removed":   removed,
				})
			}
		case *ReviveEffect:
			for _, t := range res.Targets {
				if t.IsAlive {
					continue
				}
				hp := max(e.HPFloor, int(math.Round(float64(t.HPMax)*e.Pct)), 1)
				t.HP = min(hp, max(t.HPMax, 1))
				t.IsAlive = true
				b.Events.Append(turn, EventRevive, actor.ID, map[string]any{
					"target_id": t.ID,
					"hp":        t.HP,
				})
			}
		case *PowerGainEffect:
			gained := min(e.Amount, actor.PowerMax-actor.Power)
			actor.Power += max(gained, 0)
			b.Events.Append(turn, EventPowerGain, actor.ID, map[string]any{
				"amount": max(gained, 0),
				"power":  actor.Power,
			})
		}
	}
}

// ownTurnsExpiry 以施法者自己的回合计数：duration 轮后，施法者再次行动结束时过期。
// duration <= 0 时不过期，直到被下一次伤害结算消耗
func (b *Battle) ownTurnsExpiry(duration int) *int {
	if duration <= 0 {
		return nil
	}
	return ExpiresAt(b.turn(), duration*max(len(b.TurnOrder), 1)+1)
}

func (b *Battle) applyDamage(actor *Combatant, skill *Skill, res *Resolution, e *DamageEffect, base string) {
	turn := b.turn()
	bonus := actor.ConsumeCritBonus(turn)
	for _, t := range res.Targets {
		if !t.IsAlive {
			continue
		}
		multiplier := e.Multiplier
		if skill.Key == SkillKeyExecute && t.HPMax > 0 && float64(t.HP)/float64(t.HPMax) < ExecuteThreshold {
			multiplier *= ExecuteMultiplier
		}
		roll := ResolveDamage(b.rng, "dmg:"+base+":"+t.ID, actor, t, multiplier, bonus)
		bonus = 0

		abs := t.TakeDamage(roll.Final)
		b.Events.Append(turn, EventDamage, actor.ID, map[string]any{
			"target_id": t.ID,
			"amount":    roll.Final,
			"absorbed":  abs.Absorbed,
			"hp_loss":   abs.HPLoss,
			"hp":        t.HP,
			"armor":     t.Armor,
			"crit":      roll.Crit,
			"roll":      roll,
		})
		b.afterDamage(actor, t, abs)
	}
}

func (b *Battle) applyStatus(actor *Combatant, res *Resolution, e *StatusEffect, base string) {
	turn := b.turn()
	for _, t := range res.Targets {
		if !t.IsAlive {
			continue
		}
		chance := StatusChance(e.Chance, actor, t)
		roll, applied := RollStatus(b.rng, base, e.StatusID, t.ID, chance)
		b.Events.Append(turn, EventStatusRoll, actor.ID, map[string]any{
			"target_id": t.ID,
			"status_id": e.StatusID,
			"chance":    chance,
			"roll":      roll,
			"applied":   applied,
		})
		if !applied {
			continue
		}
		t.ApplyStatus(StatusEntry{
			ID:          e.StatusID,
			ExpiresTurn: ExpiresAt(turn, e.Duration),
			Stacks:      e.Stacks,
			Data:        copyData(e.Data),
		})
		b.Events.Append(turn, EventStatusApplied, actor.ID, map[string]any{
			"target_id": t.ID,
			"status_id": e.StatusID,
		})
	}
}

// applyBarrier 同一技能的护盾重复施加时先移除旧护盾的剩余量
func (b *Battle) applyBarrier(actor *Combatant, skill *Skill, e *BarrierEffect) {
	turn := b.turn()
	id := BarrierID(skill.ID)
	if old, ok := actor.RemoveStatus(id); ok {
		actor.dropBarrierArmor(old)
	}
	actor.Armor += e.Amount
	actor.ApplyStatus(StatusEntry{
		ID:          id,
		ExpiresTurn: ExpiresAt(turn, e.Duration),
		Data:        map[string]any{DataArmor: e.Amount},
	})
	b.Events.Append(turn, EventBarrier, actor.ID, map[string]any{
		"amount": e.Amount,
		"armor":  actor.Armor,
	})
}

// applyMove 沿直线朝目标点冲刺，遇到障碍或其他单位时停下
func (b *Battle) applyMove(actor *Combatant, point Position, e *MoveEffect) {
	if point == actor.Pos {
		return
	}
	path := TraceLine(actor.Pos, point)[1:]
	if e.Tiles > 0 && len(path) > e.Tiles {
		path = path[:e.Tiles]
	}
	from := actor.Pos
	dest := from
	for _, cell := range path {
		if b.Board.IsBlocked(cell) || b.Roster.Occupied(cell) {
			break
		}
		dest = cell
	}
	if dest == from {
		return
	}
	actor.Pos = dest
	b.Events.Append(b.turn(), EventMoved, actor.ID, map[string]any{"from": from, "to": dest})
}

func (b *Battle) applyTeleport(actor *Combatant, point Position) {
	if point == actor.Pos || b.Board.IsBlocked(point) || b.Roster.Occupied(point) {
		return
	}
	from := actor.Pos
	actor.Pos = point
	b.Events.Append(b.turn(), EventTeleport, actor.ID, map[string]any{"from": from, "to": point})
}

// applyForcedMove 拉近或推远目标，路径被障碍或单位阻挡时提前停下
func (b *Battle) applyForcedMove(actor, target *Combatant, tiles int, pull bool) {
	if tiles <= 0 {
		tiles = 1
	}
	var path []Position
	typ := EventPush
	if pull {
		typ = EventPull
		path = TraceLine(target.Pos, actor.Pos)[1:]
		if len(path) > tiles {
			path = path[:tiles]
		}
	} else {
		away := Position{X: target.Pos.X - actor.Pos.X, Y: target.Pos.Y - actor.Pos.Y}
		path = b.Board.LineCells(target.Pos, target.Pos.Add(away), tiles, false)
	}

	from := target.Pos
	dest := from
	for _, cell := range path {
		if b.Board.IsBlocked(cell) || b.Roster.Occupied(cell) {
			break
		}
		dest = cell
	}
	if dest == from {
		return
	}
	target.Pos = dest
	b.Events.Append(b.turn(), typ, actor.ID, map[string]any{
		"target_id": target.ID,
		"from":      from,
		"to":        dest,
	})
}

func copyData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return cp
}
