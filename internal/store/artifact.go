package store

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// ArtifactStore 音频工件存储（本地文件系统）
// 上传的音频以 recording-<时间戳>-<随机数><扩展名> 命名落盘
type ArtifactStore struct {
	dir     string
	maxSize int64
}

// NewArtifactStore 创建工件存储，目录不存在时自动创建
func NewArtifactStore(dir string, maxSizeBytes int64) (*ArtifactStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}
	return &ArtifactStore{dir: dir, maxSize: maxSizeBytes}, nil
}

// Save 保存一个音频流，返回工件引用（相对路径）
// 超过大小上限返回错误
func (s *ArtifactStore) Save(src io.Reader, originalName string) (string, error) {
	ext := filepath.Ext(originalName)
	name := fmt.Sprintf("recording-%d-%d%s", time.Now().UnixMilli(), rand.Int63n(1e9), ext)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer dst.Close()

	// maxSize+1：多读一个字节以检测超限
	written, err := io.Copy(dst, io.LimitReader(src, s.maxSize+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write artifact file: %w", err)
	}
	if written > s.maxSize {
		os.Remove(path)
		return "", fmt.Errorf("artifact exceeds size limit of %d bytes", s.maxSize)
	}

	return path, nil
}

// Open 打开一个工件用于读取
func (s *ArtifactStore) Open(ref string) (io.ReadCloser, error) {
	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact %s: %w", ref, err)
	}
	return f, nil
}

// Remove 删除一个工件（失败场景下的清理用）
func (s *ArtifactStore) Remove(ref string) error {
	return os.Remove(ref)
}
