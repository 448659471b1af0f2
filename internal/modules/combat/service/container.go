package service

import (
	"database/sql"

	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/notify"
	"tsu-tactics/internal/repository/impl"
	"tsu-tactics/internal/repository/interfaces"
)

// ServiceContainer 战斗服务容器，统一创建 Repository 和 Service
type ServiceContainer struct {
	campaignRepo interfaces.CampaignRepository

	Settler       *Settler
	CombatService *CombatService
}

// NewServiceContainer 创建服务容器。publisher 为空时使用全局 NATS 连接
func NewServiceContainer(db *sql.DB, publisher notify.Publisher, logger log.Logger) *ServiceContainer {
	if logger == nil {
		logger = log.GetLogger()
	}
	c := &ServiceContainer{
		campaignRepo: impl.NewCampaignRepository(db),
	}

	repos := Repositories{
		Sessions:     impl.NewCombatSessionRepository(db),
		Combatants:   impl.NewCombatantRepository(db),
		Skills:       impl.NewCombatSkillRepository(db),
		Bosses:       impl.NewBossInstanceRepository(db),
		Events:       impl.NewActionEventRepository(db),
		Boards:       impl.NewBoardRepository(db),
		Participants: impl.NewParticipantRepository(db),
	}
	boards := repos.Boards

	c.Settler = NewSettler(
		NewRewardGranter(impl.NewRewardRepository(db)),
		NewReputationWriter(impl.NewReputationRepository(db), logger),
		NewMemoryWriter(impl.NewNarrativeMemoryRepository(db)),
		NewBoardActivator(boards),
		logger,
	)
	c.CombatService = NewCombatService(repos, NewTxRunner(db, logger), c.Settler, publisher, logger)
	return c
}

// CampaignRepository 战役成员关系的数据库兜底校验
func (c *ServiceContainer) CampaignRepository() interfaces.CampaignRepository {
	return c.campaignRepo
}
