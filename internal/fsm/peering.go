package fsm

// peering waits until the transport has a socket to every other
// tracked player, then announces completion once and advances
// (original's Client.peering).
func (f *FSM) peering() {
	f.mu.Lock()
	done := f.isPeeringCompleted
	f.mu.Unlock()
	if done {
		return
	}
	if !f.transport.AllConnected() {
		return
	}
	pkt, _ := newPacket(f, peeringCompletedType, nil)
	f.transport.SendAll(pkt, false)
	printSystem("%s connected to every peer", f.myself.Name)

	f.mu.Lock()
	f.isPeeringCompleted = true
	f.mu.Unlock()
	f.setState(ResetSync)
}

// resetSyncState clears SyncEngine state for a fresh probe and advances.
// Separated from the sync type name to avoid colliding with the
// transport method of the same name.
func (f *FSM) resetSyncState() {
	f.transport.ResetSync()
	f.setState(SynchronizeClock)
}
