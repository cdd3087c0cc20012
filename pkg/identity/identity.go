package identity

import (
	"errors"
	"os"

	"github.com/google/uuid"

	"github.com/benmeehan/waste-reporter/pkg/file"
)

// Identity identifies the reporting device.
type Identity struct {
	ID   string `json:"reporter_id,omitempty"`
	Name string `json:"reporter_name,omitempty"`
}

// ReporterInfoInterface exposes the identity of the reporting device.
type ReporterInfoInterface interface {
	LoadReporterInfo() error
	GetReporterID() string
	GetReporterIdentity() Identity
}

// ReporterInfo loads the identity from a JSON file.
type ReporterInfo struct {
	identityFile string
	identity     Identity
	fileOps      file.FileOperations
}

// NewReporterInfo initializes a new ReporterInfo instance.
func NewReporterInfo(filePath string, fileOps file.FileOperations) *ReporterInfo {
	return &ReporterInfo{
		identityFile: filePath,
		fileOps:      fileOps,
	}
}

// LoadReporterInfo reads the identity file. Without a file, or with a file
// lacking an id, the device gets an ephemeral id for this run.
func (r *ReporterInfo) LoadReporterInfo() error {
	if r.identityFile != "" {
		err := r.fileOps.ReadJsonFile(r.identityFile, &r.identity)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if r.identity.ID == "" {
		r.identity.ID = uuid.New().String()
	}
	return nil
}

// GetReporterID returns the current reporter id.
func (r *ReporterInfo) GetReporterID() string {
	return r.identity.ID
}

// GetReporterIdentity returns a copy of the identity.
func (r *ReporterInfo) GetReporterIdentity() Identity {
	return r.identity
}
