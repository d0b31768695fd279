package net

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// WorkerFunction handles one queued task (a net.Conn, in this package). It
// participates in the tomb's supervision: a returned error is fatal to the
// tomb, not just to this one task.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool keeps up to n goroutines draining a shared task queue. It
// exists so a burst of new connections doesn't spawn one goroutine per
// connection; it has nothing to do with the matching engine's own
// single-threaded contract — workers only parse bytes off the wire and hand
// the result to the session handler, which is the single goroutine
// permitted to call into the engine.
type WorkerPool struct {
	n     int
	tasks chan any
	work  WorkerFunction
}

func NewWorkerPool(size int) WorkerPool {
	return WorkerPool{
		tasks: make(chan any, taskChanSize),
		n:     size,
	}
}

// AddTask enqueues a task for the next free worker.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Setup keeps the pool topped up at n active workers until the tomb starts
// dying.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	pool.work = work
	log.Info().Int("workers", pool.n).Msg("starting worker pool")

	active := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if active < pool.n {
				t.Go(func() error {
					err := pool.worker(t)
					active--
					return err
				})
				active++
			}
		}
	}
}

func (pool *WorkerPool) worker(t *tomb.Tomb) error {
	select {
	case <-t.Dying():
		return nil
	case task := <-pool.tasks:
		if err := pool.work(t, task); err != nil {
			log.Error().Err(err).Msg("worker exiting")
			return err
		}
	}
	return nil
}
