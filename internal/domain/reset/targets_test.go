package reset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhos/janitor/internal/client"
	"github.com/dhos/janitor/internal/model"
)

func eprConfig(enabled bool) model.TrustomerConfig {
	return model.TrustomerConfig{GDMConfig: model.GDMConfig{UseEPRIntegration: enabled}}
}

func TestResolveTargets_EmptySelectsAll(t *testing.T) {
	got, err := ResolveTargets(nil, eprConfig(true))
	require.NoError(t, err)
	assert.Equal(t, client.ResettableTargets, got)

	got, err = ResolveTargets([]string{}, eprConfig(false))
	require.NoError(t, err)
	assert.Len(t, got, len(client.ResettableTargets)-1)
	assert.NotContains(t, got, client.FuegoAPI)
}

func TestResolveTargets_CanonicalOrder(t *testing.T) {
	got, err := ResolveTargets([]string{
		"dhos-observations-api", "gdm_bg_readings_api", " dhos-locations-api ", "dhos-users-api",
	}, eprConfig(false))
	require.NoError(t, err)
	assert.Equal(t, []string{client.LocationsAPI, client.UsersAPI, client.BGReadingsAPI, client.ObservationsAPI}, got)
}

func TestResolveTargets_Duplicates(t *testing.T) {
	got, err := ResolveTargets([]string{"dhos-users-api", "dhos_users_api"}, eprConfig(false))
	require.NoError(t, err)
	assert.Equal(t, []string{client.UsersAPI}, got)
}

func TestResolveTargets_Unknown(t *testing.T) {
	_, err := ResolveTargets([]string{"zeta-api", "dhos-users-api", "alpha-api"}, eprConfig(true))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "unknown microservices 'alpha-api,zeta-api'", verr.Error())
	assert.Equal(t, "validation", verr.Classification())
}

func TestResolveTargets_NonResettableServiceIsUnknown(t *testing.T) {
	_, err := ResolveTargets([]string{client.TrustomerAPI}, eprConfig(true))
	assert.Error(t, err)
}

func TestResolveTargets_Fuego(t *testing.T) {
	_, err := ResolveTargets([]string{client.FuegoAPI}, eprConfig(false))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	got, err := ResolveTargets([]string{client.FuegoAPI}, eprConfig(true))
	require.NoError(t, err)
	assert.Equal(t, []string{client.FuegoAPI}, got)
}
