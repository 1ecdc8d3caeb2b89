package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProducts(t *testing.T) {
	regular := Products(false)
	assert.Len(t, regular, 3)
	assert.Equal(t, "15", regular[0].Price.String())
	assert.Equal(t, "27", regular[1].Price.String())
	assert.Equal(t, "50", regular[2].Price.String())

	test := Products(true)
	for _, p := range test {
		assert.True(t, p.Price.Equal(TestPrice), p.Name)
	}

	// repricing must not leak into the shared list
	assert.Equal(t, "15", Products(false)[0].Price.String())
}

func TestCookiesPerPackage(t *testing.T) {
	assert.Equal(t, 3, CookiesPerPackage("The Nibbler"))
	assert.Equal(t, 6, CookiesPerPackage("Family Pack"))
	assert.Equal(t, 12, CookiesPerPackage("The Pro"))
	assert.Equal(t, 0, CookiesPerPackage("Brownie"))
}
