package configwatcher

import (
	"context"
	"path/filepath"
	"studyplan_backend/internal/config"
	"studyplan_backend/pkg/logger"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ConfigReloader 配置重新加载成功后的回调
type ConfigReloader func(cfg *config.Config)

// Watcher 监听配置文件变化，防抖后重新加载
type Watcher struct {
	Dir      string
	File     string
	Debounce time.Duration
	Reload   ConfigReloader
}

func New(configDir string, reloader ConfigReloader) *Watcher {
	return &Watcher{
		Dir:      configDir,
		File:     "config.yaml",
		Debounce: time.Second,
		Reload:   reloader,
	}
}

// Run 阻塞直到 ctx 结束。监听目录而不是文件本身，
// 这样编辑器以重命名方式保存时不会丢失监听
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absDir, err := filepath.Abs(w.Dir)
	if err != nil {
		return err
	}
	if err := watcher.Add(absDir); err != nil {
		return err
	}
	target := filepath.Join(absDir, w.File)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				// 防抖处理
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.Debounce)
			}
		case <-timer.C:
			newCfg, err := config.LoadConfig(absDir)
			if err != nil {
				logger.Log.Error("Failed to reload config", zap.Error(err))
				continue
			}
			logger.Log.Info("Config reloaded", zap.String("path", target))
			w.Reload(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
