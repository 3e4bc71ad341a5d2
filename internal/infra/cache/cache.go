package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/bibdiff/internal/infra/fsx"
)

// Store 提供 <cache_dir>/<rev>/ 下的 fixture 文件读写。
//
// 约束：
// - compare/history：只读（ReadOnly=true）
// - fetch/track：允许写（ReadOnly=false）
type Store struct {
	Root     string // <cache_dir>/<rev>
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

// New 返回以 <cacheDir>/<rev> 为根的 Store。
func New(cacheDir, rev string, readOnly bool) (Store, error) {
	rev = strings.TrimSpace(rev)
	if err := checkName(rev); err != nil {
		return Store{}, fmt.Errorf("非法 rev：%w", err)
	}
	return Store{
		Root:     filepath.Join(filepath.Clean(strings.TrimSpace(cacheDir)), rev),
		ReadOnly: readOnly,
	}, nil
}

// Path 返回缓存文件的路径。name 只能是单个文件名。
func (s Store) Path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.Root, name), nil
}

// Has 报告 name 是否已缓存（目录不算）。
func (s Store) Has(name string) (bool, error) {
	path, err := s.Path(name)
	if err != nil {
		return false, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return fi.Mode().IsRegular(), nil
}

// Read 读取缓存文件；不存在时 ok=false 且 err=nil。
func (s Store) Read(name string) ([]byte, bool, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// Write 原子覆盖写入缓存文件。
func (s Store) Write(name string, data []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	return fsx.WriteFile(path, data)
}

// 文件名来自内置目录表与 rev 配置；这里只挡住路径穿越。
func checkName(name string) error {
	switch {
	case name == "":
		return errors.New("文件名不能为空")
	case name == "." || name == "..":
		return fmt.Errorf("非法文件名：%q", name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("文件名不能包含路径分隔符：%q", name)
	}
	return nil
}
