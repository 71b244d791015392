package tasks

// TaskSchedulerInterface is the scheduling surface the rest of the
// application uses: start/stop the worker pool and hand it work.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
