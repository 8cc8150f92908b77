package models

// Change event names published to subscribers.
const (
	EventNoteSaved        = "note.saved"
	EventNoteTrashed      = "note.trashed"
	EventNoteDeleted      = "note.deleted"
	EventNoteRecovered    = "note.recovered"
	EventNoteMoved        = "note.moved"
	EventFolderCreated    = "folder.created"
	EventFolderRenamed    = "folder.renamed"
	EventFolderDeleted    = "folder.deleted"
	EventFileChanged      = "file.changed"
	EventVaultChanged     = "vault.changed"
	EventSelectionChanged = "selection.changed"
)
