package evaluate

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"geohash-signature/internal/grid"
	"geohash-signature/internal/logger"
	"geohash-signature/internal/metrics"
)

// ErrWorkerEvaluation 标记 worker 内部判定失败（判定器报错或 panic）
var ErrWorkerEvaluation = errors.New("worker evaluation failed")

// Matcher 判定单元是否满足条件；实例只被一个 worker 使用
type Matcher interface {
	Match(c grid.Cell) (bool, error)
	Close()
}

// Factory 为每个 worker 构造独立的判定器
type Factory func() (Matcher, error)

// WorkerError 描述失败的分片与单元
type WorkerError struct {
	Chunk int
	Cell  grid.Cell
	Err   error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("%v: chunk %d cell %q: %v", ErrWorkerEvaluation, e.Chunk, e.Cell, e.Err)
}

func (e *WorkerError) Unwrap() []error { return []error{ErrWorkerEvaluation, e.Err} }

type job struct {
	idx   int
	cells []grid.Cell
	out   chan<- chunkResult
}

type chunkResult struct {
	idx    int
	passed []grid.Cell
	err    error
}

// 文档注释：并行判定池
// 背景：worker 数在创建时固定，生命周期覆盖一次生成调用的全部轮次；每个 worker 独占一个 Matcher（独立 GEOS 上下文与形状副本）。
// 约束：Evaluate 由单一驱动协程调用，是一轮的屏障：等待全部分片完成（含失败后的其余分片）再返回；workers<=1 时走同步路径，结果与并行路径一致。
type Pool struct {
	workers  int
	matchers []Matcher
	jobs     chan job
	wg       sync.WaitGroup
	once     sync.Once
}

// NewPool：构造判定器并启动 worker；任一判定器构造失败则回收已构造的判定器
func NewPool(workers int, factory Factory) (*Pool, error) {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{workers: workers}
	for i := 0; i < workers; i++ {
		m, err := factory()
		if err != nil {
			for _, prev := range p.matchers {
				prev.Close()
			}
			return nil, err
		}
		p.matchers = append(p.matchers, m)
	}
	if workers == 1 {
		return p, nil
	}
	p.jobs = make(chan job)
	for i, m := range p.matchers {
		p.wg.Add(1)
		go func(id int, m Matcher) {
			defer p.wg.Done()
			for j := range p.jobs {
				passed, err := runChunk(m, j.idx, j.cells)
				j.out <- chunkResult{idx: j.idx, passed: passed, err: err}
			}
			logger.L().Debug("evaluate_worker_stop", "worker", id)
		}(i, m)
	}
	return p, nil
}

func (p *Pool) Workers() int { return p.workers }

// Evaluate：判定一批单元，返回通过的单元（已排序）
// 异常：任一分片失败返回序号最小的失败分片的 *WorkerError，不返回部分结果。
func (p *Pool) Evaluate(cells []grid.Cell) ([]grid.Cell, error) {
	if len(cells) == 0 {
		return nil, nil
	}
	metrics.CellsEvaluatedTotal.Add(float64(len(cells)))
	chunks := Chunk(cells, p.workers)
	if p.workers == 1 {
		var passed []grid.Cell
		for i, ch := range chunks {
			ok, err := runChunk(p.matchers[0], i, ch)
			if err != nil {
				metrics.WorkerFaultsTotal.Inc()
				return nil, err
			}
			passed = append(passed, ok...)
		}
		sortCells(passed)
		return passed, nil
	}
	out := make(chan chunkResult, len(chunks))
	for i, ch := range chunks {
		p.jobs <- job{idx: i, cells: ch, out: out}
	}
	var (
		passed   []grid.Cell
		firstErr error
		firstIdx = len(chunks)
	)
	for range chunks {
		r := <-out
		if r.err != nil {
			metrics.WorkerFaultsTotal.Inc()
			if r.idx < firstIdx {
				firstIdx, firstErr = r.idx, r.err
			}
			continue
		}
		passed = append(passed, r.passed...)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	sortCells(passed)
	return passed, nil
}

// Close：停止 worker 并释放判定器；可重复调用
func (p *Pool) Close() {
	p.once.Do(func() {
		if p.jobs != nil {
			close(p.jobs)
			p.wg.Wait()
		}
		for _, m := range p.matchers {
			m.Close()
		}
	})
}

// runChunk：逐个判定分片内的单元，panic 转为 *WorkerError
func runChunk(m Matcher, idx int, cells []grid.Cell) (passed []grid.Cell, err error) {
	var cur grid.Cell
	defer func() {
		if r := recover(); r != nil {
			passed = nil
			err = &WorkerError{Chunk: idx, Cell: cur, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	for _, c := range cells {
		cur = c
		ok, merr := m.Match(c)
		if merr != nil {
			return nil, &WorkerError{Chunk: idx, Cell: c, Err: merr}
		}
		if ok {
			passed = append(passed, c)
		}
	}
	return passed, nil
}

// Chunk：按 ceil(n/workers) 切分，分片大小至少为 1
func Chunk(cells []grid.Cell, workers int) [][]grid.Cell {
	n := len(cells)
	if n == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	size := (n + workers - 1) / workers
	if size < 1 {
		size = 1
	}
	out := make([][]grid.Cell, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, cells[start:end])
	}
	return out
}

func sortCells(cells []grid.Cell) {
	sort.Slice(cells, func(i, j int) bool { return cells[i] < cells[j] })
}
