// Package workerpool bounds how many reconciliation runs execute at once.
//
// A fixed set of workers drains a buffered queue. Submission never blocks:
// when every worker is busy and the queue is full the caller gets
// ErrQueueFull and can shed the request.
//
//	pool, err := workerpool.New(workerpool.Config{
//	    Workers:   2,
//	    QueueSize: 8,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Stop()
//
//	err = pool.Do(ctx, func(ctx context.Context) error {
//	    _, err := engine.Run(ctx, cfg)
//	    return err
//	})
package workerpool
