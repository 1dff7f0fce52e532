package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Collector 指标收集器
// 定期刷新数据库连接数和提交单状态分布指标
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = UpdateDatabaseConnections(c.db)
			_ = c.refreshStatusDistribution()
		}
	}
}

// refreshStatusDistribution 刷新提交单状态分布指标
func (c *Collector) refreshStatusDistribution() error {
	var rows []struct {
		Status string
		Count  int64
	}
	err := c.db.Raw(
		"SELECT status, COUNT(*) AS count FROM submissions WHERE deleted = ? GROUP BY status",
		false,
	).Scan(&rows).Error
	if err != nil {
		return err
	}

	for _, row := range rows {
		UpdateSubmissionsByStatus(row.Status, float64(row.Count))
	}
	return nil
}
