package fishnet

import (
	"context"
	"time"

	"geohash-signature/internal/geometry"
	"geohash-signature/internal/grid"
	"geohash-signature/internal/logger"
	"geohash-signature/internal/traverse"

	"golang.org/x/sync/errgroup"
)

// 文档注释：分片并行生成
// 背景：大形状先切分为瓦片内的面，每个面独立遍历（单 worker），多个面按引擎的并发度同时运行，最后合并结果。
// 约束：每个面的遍历以该面为搜索范围、以完整形状判定关系，因此 within 等关系在瓦片边界上仍然正确；首个错误取消其余分片并返回。
type Orchestrator struct {
	engine *traverse.Engine
}

func NewOrchestrator(engine *traverse.Engine) *Orchestrator {
	return &Orchestrator{engine: engine}
}

// Generate：切分并合并各分片签名
func (o *Orchestrator) Generate(ctx context.Context, shape *geometry.Shape, level int, rels []geometry.Relation, tileSize float64) (grid.CellSet, error) {
	if err := grid.ValidateLevel(level); err != nil {
		return nil, err
	}
	parts, err := Partition(shape, tileSize)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	single := o.engine.WithWorkers(1)
	results := make([]grid.CellSet, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.engine.Workers())
	for i, part := range parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cells, err := single.GenerateRegion(shape, part, level, rels)
			if err != nil {
				return err
			}
			results[i] = cells
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.L().Warn("fishnet_generate_error", "parts", len(parts), "err", err)
		return nil, err
	}
	out := grid.NewCellSet()
	for _, r := range results {
		out.Union(r)
	}
	logger.L().Debug("fishnet_generate_done",
		"parts", len(parts),
		"tile_size", tileSize,
		"cells", out.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
