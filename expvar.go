package treeset

import (
	"expvar"
)

func init() {
	treeset.Set("ops submitted", &opsSubmitted)
}

// These could be attached to a Set someday.
var (
	treeset      = expvar.NewMap("treeset")
	opsSubmitted expvar.Map

	gcCyclesStarted     = expvar.NewInt("treesetGcCyclesStarted")
	gcCyclesCompleted   = expvar.NewInt("treesetGcCyclesCompleted")
	gcRequestsCoalesced = expvar.NewInt("treesetGcRequestsCoalesced")
	gcOpsQueued         = expvar.NewInt("treesetGcOpsQueued")
	gcAutoTriggered     = expvar.NewInt("treesetGcAutoTriggered")

	nodesSpawned    = expvar.NewInt("treesetNodesSpawned")
	nodesTerminated = expvar.NewInt("treesetNodesTerminated")
	// Live elements injected into the new tree during compaction, and
	// tombstones it left behind.
	copyInsertsSent       = expvar.NewInt("treesetCopyInsertsSent")
	copyTombstonesDropped = expvar.NewInt("treesetCopyTombstonesDropped")
)
