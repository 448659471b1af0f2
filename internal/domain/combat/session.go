package combat

import (
	"context"
	"time"

	"github.com/looplab/fsm"
)

// SessionStatus 会话状态
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// Outcome 战斗结果
type Outcome string

const (
	OutcomeVictory   Outcome = "victory"
	OutcomeDefeat    Outcome = "defeat"
	OutcomeAbandoned Outcome = "abandoned"
)

// Session 战斗会话
type Session struct {
	ID               string
	CampaignID       string
	Seed             int64
	Status           SessionStatus
	CurrentTurnIndex int
	BoardID          string
	PreviousBoardID  string // 战斗开始前激活的非战斗地图
	FactionID        string
	Outcome          Outcome
	StartedAt        time.Time
	EndedAt          *time.Time
}

// Active 会话是否进行中
func (s *Session) Active() bool {
	return s.Status == SessionActive
}

const eventEnd = "end"

// newLifecycle active → ended，ended 为终态
func newLifecycle(s *Session, now func() time.Time) *fsm.FSM {
	initial := string(s.Status)
	if initial == "" {
		initial = string(SessionActive)
	}
	return fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: eventEnd, Src: []string{string(SessionActive)}, Dst: string(SessionEnded)},
		},
		fsm.Callbacks{
			"enter_" + string(SessionEnded): func(_ context.Context, e *fsm.Event) {
				s.Status = SessionEnded
				ended := now()
				s.EndedAt = &ended
				if len(e.Args) > 0 {
					if outcome, ok := e.Args[0].(Outcome); ok {
						s.Outcome = outcome
					}
				}
			},
		},
	)
}
