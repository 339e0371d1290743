package assets

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

// DecodeFunc produces the in-memory asset for an entry. It runs on worker goroutines.
type DecodeFunc func(md metadata.AssetMetadata) (any, error)

type loadTask struct {
	md metadata.AssetMetadata
}

// LoadResult is a finished decode waiting for the owner to drain it.
// Err is a *DecodeError when decoding failed.
type LoadResult struct {
	Handle metadata.AssetHandle
	Type   metadata.AssetType
	Asset  any
	Err    error
}

// WorkerPool decodes assets on a fixed set of goroutines. The task queue and
// the results queue each have their own mutex and no code path holds both.
// Tasks start in FIFO order; completion order is whatever the decoders make it.
type WorkerPool struct {
	numWorkers int
	decode     DecodeFunc
	metrics    *core.PipelineMetrics

	taskMu   sync.Mutex
	taskCond *sync.Cond
	tasks    *containers.Queue[loadTask]
	stopping bool

	resultMu sync.Mutex
	results  *containers.Queue[LoadResult]

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewWorkerPool starts numWorkers goroutines, or runtime.NumCPU() when numWorkers <= 0.
func NewWorkerPool(numWorkers int, decode DecodeFunc, metrics *core.PipelineMetrics) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	p := &WorkerPool{
		numWorkers: numWorkers,
		decode:     decode,
		metrics:    metrics,
		tasks:      containers.NewQueue[loadTask](64),
		results:    containers.NewQueue[LoadResult](64),
	}
	p.taskCond = sync.NewCond(&p.taskMu)

	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.worker(i)
	}
	core.LogDebug("asset worker pool started with %d workers", numWorkers)
	return p
}

func (p *WorkerPool) Workers() int {
	return p.numWorkers
}

// Submit enqueues a load and wakes one idle worker. It never blocks on decoding.
func (p *WorkerPool) Submit(md metadata.AssetMetadata) error {
	p.taskMu.Lock()
	if p.stopping {
		p.taskMu.Unlock()
		return ErrPoolClosed
	}
	p.tasks.Enqueue(loadTask{md: md})
	depth := p.tasks.Len()
	p.taskMu.Unlock()

	p.taskCond.Signal()
	p.metrics.SetQueueDepth(depth)
	p.metrics.LoadSubmitted(md.Type.String())
	return nil
}

// Pending returns the handles still waiting for a worker, in queue order.
func (p *WorkerPool) Pending() []metadata.AssetHandle {
	p.taskMu.Lock()
	queued := p.tasks.Snapshot()
	p.taskMu.Unlock()

	out := make([]metadata.AssetHandle, len(queued))
	for i, t := range queued {
		out[i] = t.md.Handle
	}
	return out
}

// DrainResults pops every result queued so far, in completion order.
func (p *WorkerPool) DrainResults() []LoadResult {
	p.resultMu.Lock()
	defer p.resultMu.Unlock()
	return p.results.DrainAll()
}

// Shutdown stops workers from taking new tasks, lets in-flight decodes
// finish and joins every worker. Tasks still queued are dropped. It blocks
// and must not be called from a decoder.
func (p *WorkerPool) Shutdown() {
	p.closeOnce.Do(func() {
		p.taskMu.Lock()
		p.stopping = true
		dropped := p.tasks.Len()
		p.taskMu.Unlock()

		p.taskCond.Broadcast()
		p.wg.Wait()
		p.metrics.SetQueueDepth(0)
		core.LogDebug("asset worker pool stopped (%d queued tasks dropped)", dropped)
	})
}

func (p *WorkerPool) complete(res LoadResult) {
	p.resultMu.Lock()
	p.results.Enqueue(res)
	p.resultMu.Unlock()
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for {
		p.taskMu.Lock()
		for p.tasks.IsEmpty() && !p.stopping {
			p.taskCond.Wait()
		}
		if p.stopping {
			p.taskMu.Unlock()
			return
		}
		task, err := p.tasks.Dequeue()
		depth := p.tasks.Len()
		p.taskMu.Unlock()

		if err != nil {
			core.LogFatal("asset worker %d woke on an empty task queue: %s", id, err)
			return
		}
		p.metrics.SetQueueDepth(depth)
		p.complete(p.run(task))
	}
}

func (p *WorkerPool) run(task loadTask) (res LoadResult) {
	md := task.md
	res = LoadResult{Handle: md.Handle, Type: md.Type}

	clock := core.NewClock()
	clock.Start()
	defer func() {
		if r := recover(); r != nil {
			res.Asset = nil
			res.Err = &DecodeError{Handle: md.Handle, Type: md.Type, Path: md.Path, Err: fmt.Errorf("decoder panic: %v", r)}
		}
		clock.Stop()
		p.metrics.ObserveDecode(md.Type.String(), clock.Elapsed())
		if res.Err != nil {
			core.LogError("failed to load %s asset %s: %s", md.Type, md.Path, res.Err)
			return
		}
		core.LogDebug("loaded %s asset %s in %s", md.Type, md.Path, clock.Elapsed())
	}()

	asset, err := p.decode(md)
	if err != nil {
		res.Err = &DecodeError{Handle: md.Handle, Type: md.Type, Path: md.Path, Err: err}
		return res
	}
	res.Asset = asset
	return res
}
