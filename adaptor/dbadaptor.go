package adaptor

import (
	"strconv"
	"time"
)

// DBAdaptor is the opaque handle the registry stores for one (species,
// group) pair. The concrete connection/query behavior lives behind Conn;
// everything else here is the bookkeeping the registry itself needs to
// answer lookups, dedupe by connection, and disconnect idle handles.
type DBAdaptor struct {
	Species        Species
	SpeciesID      int
	Group          Group
	IsMultispecies bool

	DBName string
	Host   string
	Port   int
	User   string
	Pass   string
	Driver string

	WaitTimeout            time.Duration
	DisconnectWhenInactive bool
	ReconnectWhenLost      bool
	NoCache                bool

	// Conn is the underlying connection used to run queries against this
	// adaptor's database. Nil is valid for adaptors registered purely as
	// configuration (e.g. from a StructLoader document with no live
	// server behind it yet).
	Conn QueryRunner
}

// Locator returns a value that identifies the physical connection backing
// this adaptor: two adaptors sharing a locator share a server connection.
// Used by the stable-id locator's multi-species dedup;
// registry.Store.GetAllDBAdaptorsByConnection compares the same four
// fields through SameConnection.
func (d *DBAdaptor) Locator() string {
	return d.Host + "|" + strconv.Itoa(d.Port) + "|" + d.User + "|" + d.DBName
}

// SameConnection reports whether d and other share host, port, user and
// dbname, per spec.md invariant for get_all_DBAdaptors_by_connection.
func (d *DBAdaptor) SameConnection(other *DBAdaptor) bool {
	if d == nil || other == nil {
		return false
	}
	return d.Host == other.Host && d.Port == other.Port &&
		d.User == other.User && d.DBName == other.DBName
}

// Disconnect releases the underlying connection if the adaptor is marked
// to disconnect when inactive. It is a no-op when Conn is nil.
func (d *DBAdaptor) Disconnect() error {
	if d.Conn == nil || !d.DisconnectWhenInactive {
		return nil
	}
	return d.Conn.Close()
}
