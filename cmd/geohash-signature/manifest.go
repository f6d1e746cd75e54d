package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest 批量任务清单
type Manifest struct {
	Jobs []Job `yaml:"jobs"`
}

// Job 单个任务；level 为 0 时使用 --level，tile_size>0 时走分片生成
type Job struct {
	Name       string   `yaml:"name"`
	ShapeFile  string   `yaml:"shape_file"`
	Level      int      `yaml:"level"`
	Conditions []string `yaml:"conditions"`
	Compress   bool     `yaml:"compress"`
	TileSize   float64  `yaml:"tile_size"`
	Out        string   `yaml:"out"`
}

// 文档注释：读取并校验清单
// 背景：shape_file 与 out 的相对路径按清单所在目录解析。
// 约束：任务名必须非空且唯一；未知字段视为错误。
func loadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("manifest %s: no jobs", path)
	}
	dir := filepath.Dir(path)
	seen := make(map[string]bool, len(m.Jobs))
	for i := range m.Jobs {
		j := &m.Jobs[i]
		if j.Name == "" {
			return nil, fmt.Errorf("manifest %s: job %d has no name", path, i)
		}
		if seen[j.Name] {
			return nil, fmt.Errorf("manifest %s: duplicate job %q", path, j.Name)
		}
		seen[j.Name] = true
		if j.ShapeFile == "" {
			return nil, errors.New("job " + j.Name + ": shape_file is required")
		}
		if j.TileSize < 0 {
			return nil, fmt.Errorf("job %s: tile_size must not be negative", j.Name)
		}
		j.ShapeFile = resolve(dir, j.ShapeFile)
		if j.Out != "" {
			j.Out = resolve(dir, j.Out)
		}
	}
	return &m, nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
