package schedule

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Task interface {
	Run(ctx context.Context) error
	Name() string
}

// RunAll 并发运行所有任务, 任一任务出错会取消其它任务
// ctx 取消导致的退出不算错误
func RunAll(ctx context.Context, logger *zap.Logger, tasks ...Task) error {
	g, gCtx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			logger.Info("task started", zap.String("task", task.Name()))
			err := task.Run(gCtx)
			if err == nil || errors.Is(err, context.Canceled) {
				logger.Info("task stopped", zap.String("task", task.Name()))
				return nil
			}
			return fmt.Errorf("%s: %w", task.Name(), err)
		})
	}
	return g.Wait()
}

// TaskFunc 把普通函数包装成 Task
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (t TaskFunc) Run(ctx context.Context) error {
	return t.Fn(ctx)
}

func (t TaskFunc) Name() string {
	return t.TaskName
}
