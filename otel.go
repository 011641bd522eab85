package treeset

const (
	tracerName = "anacrolix.treeset"
	gcSpanName = "GcCycle"
)
