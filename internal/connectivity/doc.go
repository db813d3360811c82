// Package connectivity tracks whether the catalog backend can be reached.
//
// A Monitor combines two sources: readings pushed by the platform through
// Observe, and active probes made by a Prober, either on demand (CheckNow) or
// from the background probe loop started with Start. The probe loop uses the
// configured interval while online and backs off exponentially, capped at 30
// seconds, while offline.
//
// Subscribers receive a Change for every transition of the connected or
// reachable fields. The composition root uses WentOnline to re-issue a
// catalog fetch that failed for lack of network; pending mutations are not
// retried automatically.
package connectivity
