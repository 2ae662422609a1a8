// Package session holds the credentials established by the login
// collaborator. It replaces ambient process-wide login state with an explicit
// object injected into the pipeline. Resolution never performs network calls;
// it only reads already-established state.
package session

import (
	"strings"

	"github.com/scenefetch/scenefetch/internal/record"
)

// Hub and provider names credentials are stored under.
const (
	HubOperational = "operational"
	HubS5P         = "s5p"
	HubGNSS        = "gnss"

	ProviderEarthdata = "earthdata"

	// HubAuto selects the hub per record: GNSS product variants go to the
	// GNSS hub, Sentinel-5P products to the s5p hub, everything else to the
	// operational hub.
	HubAuto = "auto"
)

// Session is a read-only store of provider credentials, keyed by hub or
// provider name.
type Session struct {
	creds map[string]record.Credential
}

func New() *Session {
	return &Session{creds: make(map[string]record.Credential)}
}

// Set stores a credential for a hub or provider name. Meant to be called by
// the login collaborator before the pipeline runs.
func (s *Session) Set(name string, cred record.Credential) {
	s.creds[name] = cred
}

func (s *Session) get(name string) (record.Credential, bool) {
	cred, ok := s.creds[name]
	return cred, ok
}

// SelectHub applies the hub selection policy for a Sentinel record. An
// explicit selector wins; HubAuto dispatches on the product variant.
func SelectHub(selector string, r *record.Record) string {
	if selector != "" && selector != HubAuto {
		return selector
	}

	if r.GNSS {
		return HubGNSS
	}

	if strings.HasPrefix(strings.ToLower(r.Product), "sentinel-5p") || strings.HasPrefix(strings.ToLower(r.Product), "s5p") {
		return HubS5P
	}

	return HubOperational
}

// Resolve maps a record onto its credential pair. A nil credential with a nil
// error means the provider requires none at this stage (Landsat and MODIS
// supply auth at transfer time or embed it in the URL). A missing required
// credential is an AuthenticationError.
func (s *Session) Resolve(r *record.Record, hubSelector string) (*record.Credential, error) {
	switch r.Group {
	case record.GroupSentinel:
		hub := SelectHub(hubSelector, r)

		cred, ok := s.get(hub)
		if !ok {
			return nil, &record.AuthenticationError{Provider: hub}
		}

		r.Hub = hub

		return &cred, nil
	case record.GroupSrtm:
		cred, ok := s.get(ProviderEarthdata)
		if !ok {
			return nil, &record.AuthenticationError{Provider: ProviderEarthdata}
		}

		return &cred, nil
	default:
		return nil, nil
	}
}

// Validate checks that every group present in the collection can resolve its
// credentials. It is the batch-fatal precondition: a missing session surfaces
// here, before any per-record processing begins.
func (s *Session) Validate(records []*record.Record, hubSelector string) error {
	for _, r := range records {
		if _, err := s.Resolve(r, hubSelector); err != nil {
			return err
		}
	}

	return nil
}
