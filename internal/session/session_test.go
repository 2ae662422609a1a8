package session_test

import (
	"errors"
	"testing"

	"github.com/scenefetch/scenefetch/internal/record"
	"github.com/scenefetch/scenefetch/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectHub(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		product  string
		gnss     bool
		want     string
	}{
		{"explicit selector wins", "s5p", "Sentinel-2A", false, "s5p"},
		{"auto gnss variant", "auto", "Sentinel-1A", true, "gnss"},
		{"auto s5p product", "auto", "Sentinel-5P TROPOMI", false, "s5p"},
		{"auto default operational", "auto", "Sentinel-2A", false, "operational"},
		{"empty selector behaves like auto", "", "Sentinel-2A", false, "operational"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &record.Record{Product: tt.product, GNSS: tt.gnss, Group: record.GroupSentinel}
			assert.Equal(t, tt.want, session.SelectHub(tt.selector, r))
		})
	}
}

func TestResolve(t *testing.T) {
	sess := session.New()
	sess.Set(session.HubOperational, record.Credential{User: "cop", Secret: "sec"})
	sess.Set(session.ProviderEarthdata, record.Credential{User: "ed", Secret: "pw"})

	t.Run("sentinel resolves hub credential and sets hub", func(t *testing.T) {
		r := &record.Record{Group: record.GroupSentinel, Product: "Sentinel-2A"}

		cred, err := sess.Resolve(r, session.HubAuto)
		require.NoError(t, err)
		require.NotNil(t, cred)
		assert.Equal(t, "cop", cred.User)
		assert.Equal(t, session.HubOperational, r.Hub)
	})

	t.Run("sentinel missing hub credential is an auth error", func(t *testing.T) {
		r := &record.Record{Group: record.GroupSentinel, Product: "Sentinel-5P"}

		_, err := sess.Resolve(r, session.HubAuto)
		require.Error(t, err)

		var authErr *record.AuthenticationError
		assert.True(t, errors.As(err, &authErr))
		assert.Equal(t, session.HubS5P, authErr.Provider)
	})

	t.Run("srtm resolves earthdata credential", func(t *testing.T) {
		r := &record.Record{Group: record.GroupSrtm}

		cred, err := sess.Resolve(r, session.HubAuto)
		require.NoError(t, err)
		require.NotNil(t, cred)
		assert.Equal(t, "ed", cred.User)
	})

	t.Run("landsat and modis need no credential here", func(t *testing.T) {
		for _, g := range []record.Group{record.GroupLandsat, record.GroupModis} {
			cred, err := sess.Resolve(&record.Record{Group: g}, session.HubAuto)
			assert.NoError(t, err)
			assert.Nil(t, cred)
		}
	})
}

func TestValidate(t *testing.T) {
	sess := session.New()
	sess.Set(session.HubOperational, record.Credential{User: "cop", Secret: "sec"})

	records := []*record.Record{
		{Group: record.GroupSentinel, Product: "Sentinel-2A"},
		{Group: record.GroupModis},
	}

	assert.NoError(t, sess.Validate(records, session.HubAuto))

	records = append(records, &record.Record{Group: record.GroupSrtm})

	err := sess.Validate(records, session.HubAuto)
	require.Error(t, err)

	var authErr *record.AuthenticationError
	assert.True(t, errors.As(err, &authErr))
	assert.Equal(t, session.ProviderEarthdata, authErr.Provider)
}
