package stratum

// threadScope holds the thread-scoped instances of one goroutine.
type threadScope struct {
	goroutine int64
	producers *producerSet
	lifecycle *lifecycleManager
}

func newThreadScope(goroutine int64, disposal bool) *threadScope {
	return &threadScope{
		goroutine: goroutine,
		producers: newProducerSet(),
		lifecycle: newLifecycleManager(disposal, nil),
	}
}
