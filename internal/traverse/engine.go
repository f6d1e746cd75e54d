package traverse

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"geohash-signature/internal/evaluate"
	"geohash-signature/internal/geometry"
	"geohash-signature/internal/grid"
	"geohash-signature/internal/logger"
	"geohash-signature/internal/metrics"
)

// 文档注释：网格遍历引擎
// 背景：从形状内部的代表点所在单元出发，按环向外扩展；每轮把当前前沿整体交给判定池，形成严格的轮次屏障。
// 约束：
// - 引擎本身无状态，可并发调用；每次生成使用独立的 visited/accepted 集合与独立的判定池；
// - 某一轮无单元通过即停止；种子单元不通过时结果为空（细长形状 + within 的已知限制）；
// - 任一 worker 失败则整次调用失败，不返回部分签名。
type Engine struct {
	codec   grid.Codec
	workers int
}

// New：workers<=0 时使用 GOMAXPROCS
func New(codec grid.Codec, workers int) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{codec: codec, workers: workers}
}

func (e *Engine) Workers() int { return e.workers }

func (e *Engine) Codec() grid.Codec { return e.codec }

// WithWorkers：同一编码器、不同并发度的引擎副本
func (e *Engine) WithWorkers(workers int) *Engine { return New(e.codec, workers) }

// Generate：满足任一关系的全部单元
func (e *Engine) Generate(shape *geometry.Shape, level int, rels []geometry.Relation) (grid.CellSet, error) {
	return e.GenerateRegion(shape, nil, level, rels)
}

// GenerateRegion：与 Generate 相同，但单元还必须与 region 相交，种子取自 region
// 用于分片：关系始终针对完整形状判定，region 只限定搜索范围。
func (e *Engine) GenerateRegion(shape, region *geometry.Shape, level int, rels []geometry.Relation) (grid.CellSet, error) {
	if shape == nil {
		return nil, fmt.Errorf("%w: nil shape", geometry.ErrInvalidShapeKind)
	}
	if err := grid.ValidateLevel(level); err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		rels = []geometry.Relation{geometry.Intersects}
	}
	from := shape
	if region != nil {
		from = region
	}
	lat, lon, ok := from.RepresentativePoint()
	if !ok {
		logger.L().Debug("traverse_empty_shape", "level", level)
		return grid.NewCellSet(), nil
	}
	seed, err := e.codec.Encode(lat, lon, level)
	if err != nil {
		return nil, err
	}
	factory := func() (evaluate.Matcher, error) {
		m, err := geometry.NewMatcher(shape, region, rels, e.codec)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return e.run(seed, factory)
}

// run：从种子单元开始逐轮扩展
func (e *Engine) run(seed grid.Cell, factory evaluate.Factory) (grid.CellSet, error) {
	start := time.Now()
	pool, err := evaluate.NewPool(e.workers, factory)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	frontier := grid.NewCellSet(seed)
	visited := grid.NewCellSet()
	accepted := grid.NewCellSet()
	round := 0
	for frontier.Len() > 0 {
		round++
		current := make([]grid.Cell, 0, frontier.Len())
		for c := range frontier {
			if visited.Has(c) {
				continue
			}
			visited.Add(c)
			current = append(current, c)
		}
		if len(current) == 0 {
			break
		}
		sort.Slice(current, func(i, j int) bool { return current[i] < current[j] })

		candidates := grid.NewCellSet()
		for _, c := range current {
			ns, err := e.codec.Neighbors(c)
			if err != nil {
				return nil, err
			}
			for _, n := range ns {
				if !frontier.Has(n) {
					candidates.Add(n)
				}
			}
		}

		passed, err := pool.Evaluate(current)
		if err != nil {
			return nil, err
		}
		added := accepted.AddAll(passed)
		metrics.TraverseRoundsTotal.Inc()
		metrics.CellsAcceptedTotal.Add(float64(added))
		logger.L().Debug("traverse_round",
			"round", round,
			"frontier", len(current),
			"passed", len(passed),
			"accepted", accepted.Len(),
		)
		if len(passed) == 0 {
			break
		}
		frontier = candidates
	}
	logger.L().Debug("traverse_done",
		"seed", string(seed),
		"rounds", round,
		"visited", visited.Len(),
		"accepted", accepted.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return accepted, nil
}
