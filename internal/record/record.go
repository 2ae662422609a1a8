package record

import (
	"fmt"
	"strings"
)

// Group identifies the provider family a product belongs to. Each group has
// its own credential, URL derivation and checksum rules.
type Group string

const (
	GroupSentinel Group = "sentinel"
	GroupLandsat  Group = "landsat"
	GroupModis    Group = "modis"
	GroupSrtm     Group = "srtm"
)

// ParseGroup maps a free-form product group value onto a known Group.
func ParseGroup(s string) (Group, error) {
	switch Group(strings.ToLower(strings.TrimSpace(s))) {
	case GroupSentinel:
		return GroupSentinel, nil
	case GroupLandsat:
		return GroupLandsat, nil
	case GroupModis:
		return GroupModis, nil
	case GroupSrtm:
		return GroupSrtm, nil
	}

	return "", fmt.Errorf("unknown product group: %q", s)
}

// Credential is an opaque provider credential pair. A nil *Credential means
// the provider requires none at transfer time.
type Credential struct {
	User   string
	Secret string
}

// ItemHandle is the per-item state returned by an order item-status endpoint
// for products that require server-side processing before download.
type ItemHandle struct {
	Status      string
	ProductURL  string
	ChecksumURL string
}

// Ready reports whether the ordered item can be downloaded.
func (h *ItemHandle) Ready() bool {
	return h != nil && strings.EqualFold(h.Status, "complete") && h.ProductURL != ""
}

// Record is one row of the record collection: the metadata describing a
// single remote dataset item. Identity fields are populated by the search
// collaborator and are read-only here; the pipeline only fills the derived
// fields and the final DatasetFiles result.
//
// The missing marker is the zero value: a nil slice or empty string means
// "not resolved" as opposed to a valid value.
type Record struct {
	// Identity, set by the search collaborator.
	Product  string
	Group    Group
	EntityID string
	RecordID string
	Level    string
	Summary  string
	OrderID  string
	GNSS     bool

	// DownloadAvailable is nil when the search collaborator did not report
	// availability; the pipeline then asks the availability checker.
	DownloadAvailable *bool

	// Derived by the pipeline.
	Hub           string
	Credential    *Credential
	Checksum      string
	Item          *ItemHandle
	DatasetURLs   []string
	DatasetFiles  []string
	Directory     string
	ItemIndex     int
	ProgressLabel string

	// Extra holds every caller column this pipeline does not interpret.
	// It is carried through untouched.
	Extra map[string]any
}

// ErrPairMismatch rejects URL/filename sequences of different lengths at
// construction time.
var ErrPairMismatch = fmt.Errorf("dataset_url and dataset_file must have equal length")

// SetDatasets stores the derived URL/filename pairs. Each URL maps to exactly
// one destination file, so the sequences must match in length and order.
func (r *Record) SetDatasets(urls, files []string) error {
	if len(urls) != len(files) {
		return fmt.Errorf("%w: %d urls, %d files", ErrPairMismatch, len(urls), len(files))
	}

	r.DatasetURLs = urls
	r.DatasetFiles = files

	return nil
}

// Available reports whether the record is flagged downloadable. An unset flag
// counts as unavailable; the pipeline resolves unset flags before asking.
func (r *Record) Available() bool {
	return r.DownloadAvailable != nil && *r.DownloadAvailable
}

// RequiresOrder reports whether the record needs a server-side processing
// order resolved before its URL and checksum can be derived. Only Landsat
// levels above the raw "l1" level go through ordering.
func (r *Record) RequiresOrder() bool {
	if r.Group != GroupLandsat {
		return false
	}

	level := strings.ToLower(r.Level)

	return level != "" && level != "l1"
}

// Collection is the ordered record collection. The pipeline never drops or
// reorders records; it only fills derived fields on each one.
type Collection []*Record

// Available returns the subsequence of records flagged downloadable,
// preserving order.
func (c Collection) Available() []*Record {
	var out []*Record

	for _, r := range c {
		if r.Available() {
			out = append(out, r)
		}
	}

	return out
}

// Groups returns the distinct product groups present in the collection.
func (c Collection) Groups() []Group {
	seen := make(map[Group]bool)

	var out []Group

	for _, r := range c {
		if !seen[r.Group] {
			seen[r.Group] = true
			out = append(out, r.Group)
		}
	}

	return out
}

// Rows renders the caller-visible view of the collection: the original Extra
// columns plus the identity columns and the final dataset_file result.
// Optional identity columns (level, summary, order_id, gnss) appear only when
// set, so records without them don't grow columns the caller never supplied.
// Core-internal derived fields (credential, checksum URL, item handle) are
// dropped. A nil dataset_file value is the missing marker.
func (c Collection) Rows() []map[string]any {
	rows := make([]map[string]any, 0, len(c))

	for _, r := range c {
		row := make(map[string]any, len(r.Extra)+9)
		for k, v := range r.Extra {
			row[k] = v
		}

		row["product"] = r.Product
		row["product_group"] = string(r.Group)
		row["entity_id"] = r.EntityID
		row["record_id"] = r.RecordID

		if r.Level != "" {
			row["level"] = r.Level
		}

		if r.Summary != "" {
			row["summary"] = r.Summary
		}

		if r.OrderID != "" {
			row["order_id"] = r.OrderID
		}

		if r.GNSS {
			row["gnss"] = r.GNSS
		}

		if r.DownloadAvailable != nil {
			row["download_available"] = *r.DownloadAvailable
		}

		if r.DatasetFiles != nil {
			row["dataset_file"] = r.DatasetFiles
		} else {
			row["dataset_file"] = nil
		}

		rows = append(rows, row)
	}

	return rows
}
