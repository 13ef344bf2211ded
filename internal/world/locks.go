package world

// DoorLocked reports whether the named door in the room carries a lock
// policy at all. Doors without a policy are open to everyone.
func (r *Room) DoorLocked(doorName string) bool {
	if r.DoorLocks == nil {
		return false
	}
	_, ok := r.DoorLocks[doorName]
	return ok
}

// CanTraverse evaluates the lock policy on a door for an acting user.
// Rules:
//   - no policy: permitted
//   - present but empty or corrupt policy: denied
//   - actor in allow_ids: permitted
//   - an allow_rel rule (rtype, other) matches when the other user still
//     exists and the relationship graph records actor->other == rtype;
//     a rule naming a deleted user is skipped, never granted
func (w *World) CanTraverse(r *Room, doorName, actorUserID string) bool {
	if r.DoorLocks == nil {
		return true
	}
	policy, locked := r.DoorLocks[doorName]
	if !locked {
		return true
	}
	if policy == nil {
		// Corrupt entry: deny.
		return false
	}
	for _, id := range policy.AllowIDs {
		if id != "" && id == actorUserID {
			return true
		}
	}
	for _, rule := range policy.AllowRel {
		if rule.UserID == "" || rule.Type == "" {
			continue
		}
		if _, exists := w.Users[rule.UserID]; !exists {
			continue
		}
		if w.Relationship(actorUserID, rule.UserID) == rule.Type {
			return true
		}
	}
	return false
}
