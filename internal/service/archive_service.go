package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/model"
	"studyplan_backend/internal/util"
	"studyplan_backend/pkg/logger"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 归档快照的对象存储接口
type StorageProvider interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	GetURL(key string) string
}

// LocalStorageProvider 本地目录存储
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *LocalStorageProvider) GetURL(key string) string {
	return filepath.ToSlash(filepath.Join(p.Config.LocalPath, key))
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *MinioStorageProvider) GetURL(key string) string {
	return "/" + p.Config.MinioBucket + "/" + key
}

// OSSStorageProvider 阿里云OSS存储实现
type OSSStorageProvider struct {
	Config *config.StorageConfig
	Client *oss.Client
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Config: cfg, Client: client}, nil
}

func (p *OSSStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObject(key, reader, oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *OSSStorageProvider) GetURL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Config.OSSBucket, p.Config.OSSEndpoint, key)
}

// NewStorageProvider 按配置选择存储后端，远端初始化失败时退回本地目录
func NewStorageProvider(cfg *config.StorageConfig) StorageProvider {
	switch cfg.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(cfg)
		if err == nil {
			return p
		}
		logger.Log.Warn("MinIO 初始化失败，使用本地存储", zap.Error(err))
	case util.StorageOSS:
		p, err := NewOSSStorageProvider(cfg)
		if err == nil {
			return p
		}
		logger.Log.Warn("OSS 初始化失败，使用本地存储", zap.Error(err))
	}
	return &LocalStorageProvider{Config: cfg}
}

// planSnapshot 归档文件内容
type planSnapshot struct {
	Reason     string      `json:"reason"`
	ArchivedAt time.Time   `json:"archivedAt"`
	Plan       *model.Plan `json:"plan"`
}

// ArchiveService 把被替换的计划或丢弃的已完成任务写成 JSON 快照
type ArchiveService struct {
	Provider StorageProvider
}

func NewArchiveService(provider StorageProvider) *ArchiveService {
	return &ArchiveService{Provider: provider}
}

// ArchivePlan 写入快照并返回其地址
func (s *ArchiveService) ArchivePlan(ctx context.Context, plan *model.Plan, reason string, at time.Time) (string, error) {
	data, err := json.Marshal(planSnapshot{Reason: reason, ArchivedAt: at, Plan: plan})
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("plans/%s/%s-r%d-%s.json", plan.StudentID, plan.ID, plan.Revision, reason)
	return s.Provider.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), util.MimeJSON)
}
