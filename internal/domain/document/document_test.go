package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	return &Document{
		Sheets: []Sheet{
			{
				Name:    "Inventory",
				Columns: []string{"item", "count", "in_stock"},
				Rows: []Row{
					{StringValue("bolts"), NumberValue(120), BoolValue(true)},
					{StringValue("nuts"), NumberValue(0), BoolValue(false)},
					{StringValue("washers"), Empty, BoolValue(true)},
				},
			},
			{
				Name:    "Suppliers",
				Columns: []string{"name", "rating"},
				Rows: []Row{
					{StringValue("Acme"), NumberValue(4.5)},
				},
			},
		},
	}
}

func TestDocument_Validate(t *testing.T) {
	doc := sampleDocument()
	require.NoError(t, doc.Validate())

	dup := &Document{Sheets: []Sheet{{Name: "A"}, {Name: "A"}}}
	require.ErrorIs(t, dup.Validate(), ErrInvalidDocument)

	unnamed := &Document{Sheets: []Sheet{{Name: ""}}}
	require.ErrorIs(t, unnamed.Validate(), ErrInvalidDocument)

	ragged := &Document{Sheets: []Sheet{{
		Name:    "A",
		Columns: []string{"x", "y"},
		Rows:    []Row{{StringValue("only one cell")}},
	}}}
	require.ErrorIs(t, ragged.Validate(), ErrInvalidDocument)
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	doc := sampleDocument()

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.True(t, doc.Equal(&decoded))
	require.Equal(t, []string{"Inventory", "Suppliers"}, decoded.SheetNames())
	require.Equal(t, []string{"item", "count", "in_stock"}, decoded.Sheets[0].Columns)
	require.Equal(t, NumberValue(120), decoded.Sheets[0].Rows[0][1])
	require.Equal(t, Empty, decoded.Sheets[0].Rows[2][1])
}

func TestValue_UnmarshalRejectsComposites(t *testing.T) {
	var v Value
	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &v))
	require.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
}

func TestDocument_EqualIsOrderSensitive(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()
	require.True(t, a.Equal(b))

	b.Sheets[0], b.Sheets[1] = b.Sheets[1], b.Sheets[0]
	require.False(t, a.Equal(b))

	c := sampleDocument()
	c.Sheets[0].Rows[0], c.Sheets[0].Rows[1] = c.Sheets[0].Rows[1], c.Sheets[0].Rows[0]
	require.False(t, a.Equal(c))
}

func TestDocument_CloneIsIndependent(t *testing.T) {
	doc := sampleDocument()
	cp := doc.Clone()
	require.True(t, doc.Equal(cp))

	cp.Sheets[0].Rows[0][0] = StringValue("changed")
	require.Equal(t, StringValue("bolts"), doc.Sheets[0].Rows[0][0])
}

func TestDocument_SheetLookup(t *testing.T) {
	doc := sampleDocument()
	require.NotNil(t, doc.Sheet("Suppliers"))
	require.Nil(t, doc.Sheet("Missing"))
}
