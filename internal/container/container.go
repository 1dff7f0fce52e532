package container

import (
	"fmt"
	"time"

	"github.com/mautops/formflow-gin/internal/auth"
	"github.com/mautops/formflow-gin/internal/config"
	"github.com/mautops/formflow-gin/internal/database"
	"github.com/mautops/formflow-gin/internal/repository"
	"github.com/mautops/formflow-gin/internal/service"
	"github.com/mautops/formflow-gin/internal/websocket"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、仓储、服务和推送组件
type Container struct {
	db             *gorm.DB
	hub            *websocket.Hub
	tokenValidator *auth.TokenValidator
	subService     service.SubmissionService
	queryService   service.QueryService
	statsService   service.StatisticsService
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. 初始化数据库(带重试机制)
	// 默认重试 3 次,初始间隔 1 秒,指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移,索引随迁移一并创建
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 初始化仓储层
	subRepo := repository.NewSubmissionRepository(db)
	histRepo := repository.NewHistoryRepository(db)
	formRepo := repository.NewFormRepository(db)
	userRepo := repository.NewUserRepository(db)

	// 3. 初始化 WebSocket Hub 和状态变更推送
	hub := websocket.NewHub()
	go hub.Run()
	notifier := websocket.NewNotifier(hub)

	// 4. 初始化服务层
	subService := service.NewSubmissionService(db, subRepo, histRepo, formRepo, userRepo, notifier)
	queryService := service.NewQueryService(subRepo, histRepo, formRepo, userRepo)
	statsService := service.NewStatisticsService(db)

	// 5. 初始化 Token 验证器
	tokenValidator := auth.NewTokenValidator(cfg.JWT.Secret, cfg.JWT.Issuer)

	return &Container{
		db:             db,
		hub:            hub,
		tokenValidator: tokenValidator,
		subService:     subService,
		queryService:   queryService,
		statsService:   statsService,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// TokenValidator 获取 Token 验证器
func (c *Container) TokenValidator() *auth.TokenValidator {
	return c.tokenValidator
}

// SubmissionService 获取提交单工作流服务
func (c *Container) SubmissionService() service.SubmissionService {
	return c.subService
}

// QueryService 获取查询服务
func (c *Container) QueryService() service.QueryService {
	return c.queryService
}

// StatisticsService 获取统计服务
func (c *Container) StatisticsService() service.StatisticsService {
	return c.statsService
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
