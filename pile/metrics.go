// Copyright 2025 R5 Labs
// This file is part of the R5 Core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

package pile

import (
	"github.com/prometheus/client_golang/prometheus"
)

// The counters every Pile reports into: a handful of named process-wide
// counters, registered once at init.
var (
	blobsInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tribles",
		Subsystem: "pile",
		Name:      "blobs_inserted_total",
		Help:      "Number of blob records appended across all open piles.",
	})
	bytesAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tribles",
		Subsystem: "pile",
		Name:      "bytes_appended_total",
		Help:      "Number of bytes (header + payload + padding) appended to pile files.",
	})
	branchCASConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tribles",
		Subsystem: "pile",
		Name:      "branch_cas_conflicts_total",
		Help:      "Number of branch Update calls that lost their compare-and-swap race.",
	})
)

func init() {
	prometheus.MustRegister(blobsInserted, bytesAppended, branchCASConflicts)
}
