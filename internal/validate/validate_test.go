package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQ(t *testing.T) {
	q, ok := Q("  Tee-shirt écru ")
	assert.True(t, ok)
	assert.Equal(t, "Tee-shirt écru", q)

	_, ok = Q("<script>")
	assert.False(t, ok)
	_, ok = Q("   ")
	assert.False(t, ok)
}

func TestQtyUpdate(t *testing.T) {
	assert.Equal(t, -1, QtyUpdate(-1))
	assert.Equal(t, 30, QtyUpdate(30))
	assert.Equal(t, 0, QtyUpdate(0))
	assert.Equal(t, MaxQty, QtyUpdate(MaxQty+1))
}

func TestSKUAndLabel(t *testing.T) {
	_, ok := SKU("K623")
	assert.True(t, ok)
	_, ok = SKU("K623'; DROP")
	assert.False(t, ok)

	_, ok = Label("")
	assert.True(t, ok)
	_, ok = Label("Bleu marine")
	assert.True(t, ok)
	_, ok = Label("<b>")
	assert.False(t, ok)
}

func TestContactFields(t *testing.T) {
	_, ok := Email("camille@example.fr")
	assert.True(t, ok)
	_, ok = Email("camille@")
	assert.False(t, ok)

	_, ok = Phone("+33 6 12 34 56 78")
	assert.True(t, ok)
	_, ok = Phone("call me")
	assert.False(t, ok)

	assert.Equal(t, "abc", Text("  abcdef ", 3))
	assert.True(t, Password("Passw0rd!"))
	assert.False(t, Password("password"))
}
