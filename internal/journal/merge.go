package journal

import "time"

// RemoteIsNewer compares two LastUpdated stamps, treating a missing stamp as
// the epoch. Only a strictly newer remote wins.
func RemoteIsNewer(remote, local *time.Time) bool {
	return stamp(remote).After(stamp(local))
}

func stamp(t *time.Time) time.Time {
	if t == nil {
		return time.Unix(0, 0)
	}
	return *t
}

// MergeRemote builds the document adopted when the remote copy is newer:
// remote content wholesale, settings overlaid with local values. A local
// document that has never been saved carries only default settings, so the
// remote settings are taken as they are.
func MergeRemote(local, remote *Document) *Document {
	merged := *remote
	if local.LastUpdated != nil {
		merged.Settings = MergeSettings(remote.Settings, local.Settings)
	}
	return &merged
}
