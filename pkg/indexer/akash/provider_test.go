package akash

import (
	"testing"

	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderLifecycle(t *testing.T) {
	h := newHarness(t)
	create := msgs.MsgCreateProvider{
		Owner:      provider,
		HostURI:    "https://provider.example.com:8443",
		Attributes: []msgs.Attribute{{Key: "region", Value: "us-west"}, {Key: "tier", Value: "community"}},
		Email:      "ops@example.com",
	}
	h.apply(5, create)

	p, err := h.store.GetProvider(h.ctx, provider)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.CreatedHeight)
	assert.Len(t, h.store.ProviderAttributes(provider), 2)

	update := msgs.MsgUpdateProvider(create)
	update.HostURI = "https://new.example.com:8443"
	update.Attributes = []msgs.Attribute{{Key: "region", Value: "eu-central"}}
	h.apply(9, update)

	p, err = h.store.GetProvider(h.ctx, provider)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.CreatedHeight)
	assert.Equal(t, int64(9), p.UpdatedHeight)
	assert.Equal(t, "https://new.example.com:8443", p.HostURI)
	assert.Equal(t, []models.ProviderAttribute{{Provider: provider, Key: "region", Value: "eu-central"}},
		h.store.ProviderAttributes(provider))

	h.apply(12, msgs.MsgDeleteProvider{Owner: provider})
	p, err = h.store.GetProvider(h.ctx, provider)
	require.NoError(t, err)
	require.NotNil(t, p.DeletedHeight)
	assert.Equal(t, int64(12), *p.DeletedHeight)

	h.apply(20, create)
	p, err = h.store.GetProvider(h.ctx, provider)
	require.NoError(t, err)
	assert.Nil(t, p.DeletedHeight)
	assert.Equal(t, int64(20), p.CreatedHeight)
}

func TestDeleteUnknownProviderIsSkipped(t *testing.T) {
	h := newHarness(t)
	h.apply(5, msgs.MsgDeleteProvider{Owner: "akash1nobody"})
}

func TestProviderAttributeSignatures(t *testing.T) {
	h := newHarness(t)
	const auditor = "akash1auditor"
	h.apply(5, msgs.MsgSignProviderAttributes{
		Owner:   provider,
		Auditor: auditor,
		Attributes: []msgs.Attribute{
			{Key: "host", Value: "akash"},
			{Key: "region", Value: "us-west"},
			{Key: "tier", Value: "community"},
		},
	})
	require.Len(t, h.store.ProviderAttributeSignatures(provider), 3)

	h.apply(6, msgs.MsgDeleteProviderAttributes{Owner: provider, Auditor: auditor, Keys: []string{"tier"}})
	sigs := h.store.ProviderAttributeSignatures(provider)
	require.Len(t, sigs, 2)
	assert.Equal(t, "host", sigs[0].Key)

	h.apply(7, msgs.MsgDeleteProviderAttributes{Owner: provider, Auditor: auditor})
	assert.Empty(t, h.store.ProviderAttributeSignatures(provider))
}
