package main

import (
	"encoding/json"
	"fmt"
	"io"

	"geohash-signature/internal/logger"
	"geohash-signature/pkg/geosig"

	"github.com/spf13/cobra"
)

// options 根命令的持久参数，各子命令共享
type options struct {
	level    int
	workers  int
	compress bool
	out      string
}

// result 标准输出的一行 JSON；cells 与 prefix/suffixes 二选一
type result struct {
	Name       string   `json:"name,omitempty"`
	Level      int      `json:"level"`
	Conditions []string `json:"conditions"`
	Count      int      `json:"count"`
	Cells      []string `json:"cells,omitempty"`
	Prefix     *string  `json:"prefix,omitempty"`
	Suffixes   []string `json:"suffixes,omitempty"`
	Out        string   `json:"out,omitempty"`
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "geohash-signature",
		Short:        "Compute the geohash cells that intersect or lie within a polygon",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.IntVar(&opts.level, "level", geosig.DefaultLevel, "geohash precision (1-12)")
	pf.IntVar(&opts.workers, "workers", 0, "evaluation workers, 0 means GOMAXPROCS")
	pf.BoolVar(&opts.compress, "compress", false, "print prefix and suffixes instead of full cells")
	pf.StringVar(&opts.out, "out", "", "also write the cells as a GeoJSON FeatureCollection to this path")

	root.AddCommand(
		newRelationCmd(opts, "intersects", "Cells whose rectangle intersects the shape"),
		newRelationCmd(opts, "within", "Cells whose rectangle lies entirely inside the shape"),
		newPartitionCmd(opts),
		newBatchCmd(opts),
	)
	return root
}

func newRelationCmd(opts *options, relation, short string) *cobra.Command {
	return &cobra.Command{
		Use:   relation + " <shape.geojson>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shape, err := geosig.LoadGeoJSONFile(args[0])
			if err != nil {
				return err
			}
			conditions := []string{relation}
			cells, err := geosig.New(opts.workers).Generate(shape, opts.level, conditions...)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), result{Level: opts.level, Conditions: conditions}, cells, opts.compress, opts.out)
		},
	}
}

// 文档注释：partition 子命令
// 背景：先按 --tile-size 切分形状再并行遍历各分片，输出与直接生成一致。
func newPartitionCmd(opts *options) *cobra.Command {
	var (
		tileSize   float64
		conditions []string
	)
	cmd := &cobra.Command{
		Use:   "partition <shape.geojson>",
		Short: "Generate a signature by traversing fishnet tiles in parallel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shape, err := geosig.LoadGeoJSONFile(args[0])
			if err != nil {
				return err
			}
			cells, err := geosig.New(opts.workers).GeneratePartitioned(cmd.Context(), shape, opts.level, tileSize, conditions...)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), result{Level: opts.level, Conditions: conditionNames(conditions)}, cells, opts.compress, opts.out)
		},
	}
	cmd.Flags().Float64Var(&tileSize, "tile-size", geosig.DefaultTileSize, "fishnet tile edge in degrees")
	cmd.Flags().StringSliceVar(&conditions, "conditions", nil, "relations to accept (intersects, within)")
	return cmd
}

func newBatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <manifest.yaml>",
		Short: "Run every job listed in a YAML manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(args[0])
			if err != nil {
				return err
			}
			gen := geosig.New(opts.workers)
			for _, j := range m.Jobs {
				if err := runJob(cmd, gen, j, opts); err != nil {
					return fmt.Errorf("job %s: %w", j.Name, err)
				}
			}
			logger.L().Info("batch_done", "manifest", args[0], "jobs", len(m.Jobs))
			return nil
		},
	}
}

func runJob(cmd *cobra.Command, gen *geosig.Generator, j Job, opts *options) error {
	shape, err := geosig.LoadGeoJSONFile(j.ShapeFile)
	if err != nil {
		return err
	}
	level := j.Level
	if level == 0 {
		level = opts.level
	}
	var cells []string
	if j.TileSize > 0 {
		cells, err = gen.GeneratePartitioned(cmd.Context(), shape, level, j.TileSize, j.Conditions...)
	} else {
		cells, err = gen.Generate(shape, level, j.Conditions...)
	}
	if err != nil {
		return err
	}
	logger.L().Debug("batch_job_done", "name", j.Name, "level", level, "cells", len(cells))
	head := result{Name: j.Name, Level: level, Conditions: conditionNames(j.Conditions)}
	return emit(cmd.OutOrStdout(), head, cells, j.Compress || opts.compress, j.Out)
}

func conditionNames(c []string) []string {
	if len(c) == 0 {
		return []string{"intersects"}
	}
	return c
}

// emit 写出一行 JSON；out 非空时同时导出 GeoJSON
func emit(w io.Writer, r result, cells []string, compress bool, out string) error {
	if out != "" {
		if err := geosig.WriteFeatureCollection(out, cells); err != nil {
			return err
		}
		r.Out = out
	}
	r.Count = len(cells)
	if compress {
		c := geosig.Compress(cells)
		r.Prefix = &c.Prefix
		r.Suffixes = c.Suffixes
	} else {
		r.Cells = cells
	}
	return json.NewEncoder(w).Encode(r)
}
