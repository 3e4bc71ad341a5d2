package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func assertNoTemp(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "."+name+".tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFile_CreatesParentAndReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ce0786d7", "expected-output.txt")

	if err := WriteFile(path, []byte("old")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := WriteFile(path, []byte("new")); err != nil {
		t.Fatalf("覆盖写入不期望错误：%v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "new" {
		t.Fatalf("期望 new，实际 %q", string(b))
	}
	assertNoTemp(t, filepath.Dir(path), "expected-output.txt")
}

func TestWriteFile_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	if err := WriteFile(filepath.Join(dir, "history.yaml"), []byte("version: 1\n")); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}

	assertNoTemp(t, dir, "history.yaml")
	if _, err := os.Stat(filepath.Join(dir, "history.yaml")); !os.IsNotExist(err) {
		t.Fatalf("不应写出最终文件，Stat err=%v", err)
	}
}

func TestWriteFile_TargetIsDir(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "output.diff")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	err := WriteFile(target, []byte("x"))
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}
