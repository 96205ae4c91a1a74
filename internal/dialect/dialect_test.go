package dialect

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relcore/internal/value"
)

type mockGenerator struct{}

func (m *mockGenerator) QuoteIdentifier(name string) string {
	return QuoteIdentifierWith(name, '`')
}

func (m *mockGenerator) QuoteString(value string) string {
	return QuoteStringLiteral(value)
}

func (m *mockGenerator) Now() string { return "NOW()" }

func (m *mockGenerator) NowPlus(value.Interval) string { return "NOW()" }

type mockDialect struct {
	name Type
}

func (m *mockDialect) Name() Type { return m.name }

func (m *mockDialect) Generator() Generator { return &mockGenerator{} }

func (m *mockDialect) Capabilities() Capabilities { return Capabilities{Savepoints: true} }

func (m *mockDialect) Placeholder() Placeholder { return Dollar }

func withEmptyRegistry(t *testing.T) {
	t.Helper()
	original := make(map[Type]func() Dialect)
	maps.Copy(original, registry)
	t.Cleanup(func() { registry = original })
	registry = make(map[Type]func() Dialect)
}

func TestRegisterDialect(t *testing.T) {
	withEmptyRegistry(t)

	testDialectType := Type("test_dialect")
	RegisterDialect(testDialectType, func() Dialect {
		return &mockDialect{name: testDialectType}
	})

	assert.Contains(t, registry, testDialectType)
	d, err := GetDialect(testDialectType)
	require.NoError(t, err)
	assert.Equal(t, testDialectType, d.Name())
	assert.Equal(t, []Type{testDialectType}, Registered())
}

func TestRegisterDialectOverwrite(t *testing.T) {
	withEmptyRegistry(t)

	testDialectType := Type("overwrite_dialect")
	RegisterDialect(testDialectType, func() Dialect { return &mockDialect{name: "first"} })
	RegisterDialect(testDialectType, func() Dialect { return &mockDialect{name: "second"} })

	d, err := GetDialect(testDialectType)
	require.NoError(t, err)
	assert.Equal(t, Type("second"), d.Name())
}

func TestGetDialectUnknown(t *testing.T) {
	withEmptyRegistry(t)

	d, err := GetDialect(SQLite)
	require.Error(t, err)
	assert.Nil(t, d)
	assert.Contains(t, err.Error(), "unsupported dialect")
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{name: "?", want: []string{"?", "?", "?"}},
		{name: "?N", want: []string{"?1", "?2", "?3"}},
		{name: "$n", want: []string{"$1", "$2", "$3"}},
		{name: ":N", want: []string{":1", ":2", ":3"}},
		{name: "", want: []string{"?", "?", "?"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePlaceholder(tt.name)
			require.NoError(t, err)
			got := []string{p(1), p(2), p(3)}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParsePlaceholder("@p")
	assert.Error(t, err)
}

func TestQuoteIdentifierWith(t *testing.T) {
	assert.Equal(t, "`a``b`", QuoteIdentifierWith("a`b", '`'))
	assert.Equal(t, `"t"."c"`, QuoteIdentifierWith("t.c", '"'))
	assert.Equal(t, "*", QuoteIdentifierWith(" * ", '"'))
}
