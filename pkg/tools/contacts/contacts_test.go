package contacts

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoke(t *testing.T, a tools.Adapter, args string) string {
	return a.Invoke(context.Background(), json.RawMessage(args))
}

func TestOpenSeedsExampleContacts(t *testing.T) {
	fs := afero.NewMemMapFs()
	b, err := Open(fs, "/data")
	require.NoError(t, err)

	email, ok := b.Get("Laura")
	require.True(t, ok)
	assert.Equal(t, "laura@example.com", email)

	exists, err := afero.Exists(fs, "/data/contacts.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestContactOperations(t *testing.T) {
	fs := afero.NewMemMapFs()
	b, err := Open(fs, "/data")
	require.NoError(t, err)
	a := b.Adapter()

	assert.Equal(t, "contact_lookup", a.Descriptor().Name)
	assert.Equal(t, "Contact added: Bob (bob@example.com)",
		invoke(t, a, `{"operation":"add","name":"Bob","email":"bob@example.com"}`))
	assert.JSONEq(t, `{"name":"BOB","email":"bob@example.com"}`, invoke(t, a, `{"operation":"get","name":"BOB"}`))
	assert.Equal(t, "Error: No contact found with name 'zed'", invoke(t, a, `{"operation":"get","name":"zed"}`))
	assert.Equal(t, "Error: Both name and email are required for adding a contact",
		invoke(t, a, `{"operation":"add","name":"x"}`))
	assert.Contains(t, invoke(t, a, `{"operation":"list"}`), "bob: bob@example.com")
	assert.Equal(t, "Error: Invalid operation 'drop'. Must be one of: add, get, list",
		invoke(t, a, `{"operation":"drop"}`))

	// reopening reads the persisted file
	b2, err := Open(fs, "/data")
	require.NoError(t, err)
	_, ok := b2.Get("bob")
	assert.True(t, ok)
}

func TestListEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/contacts.json", []byte(`{}`), 0o644))
	b, err := Open(fs, "/data")
	require.NoError(t, err)
	out, err := b.Run(context.Background(), Input{Operation: "list"})
	require.NoError(t, err)
	assert.Equal(t, "No contacts found", out)
}
