package csl

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Namespace 是 CSL 1.0 的 XML 命名空间。
const Namespace = "http://purl.org/net/xbiblio/csl"

var (
	// ErrNoUpdated 表示样式缺少 <info><updated>。
	ErrNoUpdated = errors.New("csl: 缺少 info/updated")
	// ErrNoTimezone 表示 <updated> 不带时区，无法作为稳定的版本标识。
	ErrNoTimezone = errors.New("csl: info/updated 缺少时区")
)

type style struct {
	XMLName xml.Name `xml:"http://purl.org/net/xbiblio/csl style"`
	Info    struct {
		Title   string `xml:"http://purl.org/net/xbiblio/csl title"`
		ID      string `xml:"http://purl.org/net/xbiblio/csl id"`
		Updated string `xml:"http://purl.org/net/xbiblio/csl updated"`
	} `xml:"http://purl.org/net/xbiblio/csl info"`
}

// Info 是样式 <info> 中与版本追踪相关的字段。
type Info struct {
	Title string
	ID    string
	// Updated 保留原文（不做时区换算），用作 InputVersion.CSLUpdatedAt。
	Updated string
}

// ParseInfo 只解析 <info>，不校验样式其余部分（样式合法性由渲染引擎负责）。
func ParseInfo(b []byte) (Info, error) {
	var s style
	dec := xml.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&s); err != nil {
		return Info{}, fmt.Errorf("csl: 解析失败：%w", err)
	}
	info := Info{
		Title:   strings.TrimSpace(s.Info.Title),
		ID:      strings.TrimSpace(s.Info.ID),
		Updated: strings.TrimSpace(s.Info.Updated),
	}
	if info.Updated == "" {
		return info, ErrNoUpdated
	}
	if err := checkTimezone(info.Updated); err != nil {
		return info, err
	}
	return info, nil
}

func checkTimezone(s string) error {
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return nil
	}
	if _, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return fmt.Errorf("%w：%q", ErrNoTimezone, s)
	}
	return fmt.Errorf("csl: info/updated 不是 ISO 时间：%q", s)
}
