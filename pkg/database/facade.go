// Package database is the facade-per-table persistence layer: one facade
// struct per table, each a thin *gorm.DB wrapper with context-scoped calls,
// composed into a single Facade following the teacher core module's
// ControlPlaneFacade convention.
package database

import (
	"sync"

	"gorm.io/gorm"
)

// Facade is the unified entry point for every table this service owns.
type Facade struct {
	Workspace WorkspaceFacadeInterface
	Document  DocumentFacadeInterface
	Chunk     ChunkFacadeInterface
	Connector ConnectorFacadeInterface
	Audit     AuditFacadeInterface
}

// New builds a Facade wired to the given GORM connection.
func New(db *gorm.DB) *Facade {
	return &Facade{
		Workspace: NewWorkspaceFacade(db),
		Document:  NewDocumentFacade(db),
		Chunk:     NewChunkFacade(db),
		Connector: NewConnectorFacade(db),
		Audit:     NewAuditFacade(db),
	}
}

var (
	global     *Facade
	globalOnce sync.Once
)

// Init sets the process-wide facade singleton. Call once at start-up.
func Init(db *gorm.DB) {
	globalOnce.Do(func() {
		global = New(db)
	})
}

// Global returns the process-wide facade singleton; panics if Init was
// never called, matching the teacher's fail-fast composition-root style.
func Global() *Facade {
	if global == nil {
		panic("database: facade not initialized, call database.Init first")
	}
	return global
}
