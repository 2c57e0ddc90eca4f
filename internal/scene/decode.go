package scene

import (
	"context"
	"image"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// decodeJob is one encoded image waiting to be decoded.
type decodeJob struct {
	index int
	data  []byte
}

type decodeResult struct {
	index int
	img   *image.NRGBA
	err   error
}

// decodePool decodes images on worker goroutines so texture upload, which
// must stay on the render thread, only waits for the slowest image.
type decodePool struct {
	jobQueue chan decodeJob
	results  chan decodeResult
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func newDecodePool(workers, queueSize int) *decodePool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &decodePool{
		jobQueue: make(chan decodeJob, queueSize),
		results:  make(chan decodeResult, queueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	for range workers {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *decodePool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			img, err := decodeImage(job.data)
			select {
			case p.results <- decodeResult{index: job.index, img: img, err: err}:
			case <-p.ctx.Done():
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// shutdown stops the workers; queued jobs are dropped.
func (p *decodePool) shutdown() {
	p.cancel()
	p.wg.Wait()
}

// decodeImages decodes every job and returns the images indexed by
// job.index, n entries long. The error of the lowest failing index wins.
func decodeImages(jobs []decodeJob, n int) ([]*image.NRGBA, error) {
	out := make([]*image.NRGBA, n)
	if len(jobs) == 0 {
		return out, nil
	}
	workers := min(len(jobs), runtime.GOMAXPROCS(0))
	p := newDecodePool(workers, len(jobs))
	defer p.shutdown()

	for _, job := range jobs {
		p.jobQueue <- job
	}
	close(p.jobQueue)

	failed := -1
	var decodeErr error
	for range jobs {
		r := <-p.results
		if r.err != nil {
			if failed < 0 || r.index < failed {
				failed, decodeErr = r.index, r.err
			}
			continue
		}
		out[r.index] = r.img
	}
	if decodeErr != nil {
		return nil, errors.Wrapf(decodeErr, "image %d", failed)
	}
	return out, nil
}
