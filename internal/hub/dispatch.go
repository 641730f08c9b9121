package hub

// Result counts one broadcast pass.
type Result struct {
	Delivered int
	Failed    int
	// Pruned lists the ids removed from the registry because their send failed.
	Pruned []string
}

// Broadcast offers msg to every subscriber in reg without blocking on any of them. Each
// subscriber whose send fails is retired and removed from reg once, after the pass.
// Removal is conditional on the entry still holding the failed sender, so a session that
// re-registered the same id mid-pass is left alone.
func Broadcast(reg *Registry, msg []byte) Result {
	var (
		res    Result
		failed []Entry
	)
	for _, e := range reg.Snapshot() {
		if err := e.Sender.TrySend(msg); err != nil {
			failed = append(failed, e)
			continue
		}
		res.Delivered++
	}
	res.Failed = len(failed)
	for _, e := range failed {
		e.Sender.Close()
		if reg.RemoveIf(e.ID, e.Sender) {
			res.Pruned = append(res.Pruned, e.ID)
		}
	}
	return res
}
