package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"

	"github.com/zcamper/silver-scraper/pkg/product"
)

const listingHTML = `<!DOCTYPE html>
<html><body>
<ul class="products">
  <li class="product type-product">
    <a href="/1-oz-silver-american-eagle/">
      <img src="https://www.silver.com/i/eagle.jpg" alt="">
      <h2 class="woocommerce-loop-product__title">1 oz Silver American Eagle</h2>
      <span class="price"><span class="woocommerce-Price-amount amount">$39.45</span></span>
    </a>
  </li>
  <li class="product type-product">
    <a href="/10-oz-silver-bar/">
      <img data-src="/i/bar.jpg" alt="">
      <h2 class="woocommerce-loop-product__title">10 oz Silver Bar</h2>
      <span class="price">
        <span class="woocommerce-Price-amount amount">$312.90</span> &ndash;
        <span class="woocommerce-Price-amount amount">$322.50</span>
      </span>
    </a>
  </li>
  <li class="product">
    <a href="/1-oz-silver-american-eagle/"><h2>1 oz Silver American Eagle</h2></a>
  </li>
  <li class="product">
    <a href="https://example.com/off-site/"><h2>Do not follow</h2></a>
  </li>
  <li class="product">
    <a href="/sale-badge/"><h3>New</h3></a>
  </li>
</ul>
<nav class="woocommerce-pagination">
  <a class="next page-numbers" href="/silver-coins/page/2/">&rarr;</a>
</nav>
</body></html>`

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestListingProducts(t *testing.T) {
	base := product.MustParseRef("https://www.silver.com/silver-coins/")
	products := listingProducts(doc(t, listingHTML), base)

	// off-site, duplicate and too-short entries are dropped
	assert.Len(t, products, 2)

	assert.Equal(t, "https://www.silver.com/1-oz-silver-american-eagle", products[0].URL.String())
	assert.Equal(t, "1 oz Silver American Eagle", products[0].Name)
	assert.Equal(t, "$39.45", products[0].Price)
	assert.Equal(t, 39.45, products[0].PriceNumeric)
	assert.Equal(t, "https://www.silver.com/i/eagle.jpg", products[0].ImageURL)

	// for price ranges, the last (as-low-as) price wins; data-src
	// images are picked up
	assert.Equal(t, "$322.50", products[1].Price)
	assert.Equal(t, "/i/bar.jpg", products[1].ImageURL)
}

func TestNextPageURL(t *testing.T) {
	base := product.MustParseRef("https://www.silver.com/silver-coins/")
	assert.Equal(t, "https://www.silver.com/silver-coins/page/2", nextPageURL(doc(t, listingHTML), base))
	assert.Equal(t, "", nextPageURL(doc(t, "<html><body></body></html>"), base))
}

const productHTML = `<!DOCTYPE html>
<html><head>
<meta property="og:image" content="https://www.silver.com/i/eagle-large.jpg">
</head><body>
<h1>1 oz Silver American Eagle (BU)</h1>
<div class="summary" itemscope>
  <meta itemprop="price" content="39.45">
  <link itemprop="availability" href="https://schema.org/InStock">
  <span class="sku">SLV-ASE-1OZ</span>
  <div class="woocommerce-product-details__short-description">
    The official silver bullion coin of the United States.
  </div>
</div>
</body></html>`

func TestProductDetails(t *testing.T) {
	ref := product.MustParseRef("https://www.silver.com/1-oz-silver-american-eagle/")
	entry := productDetails(doc(t, productHTML), ref)

	assert.Equal(t, "", entry.ExcludedReason)
	assert.Equal(t, "1 oz Silver American Eagle (BU)", entry.Name)
	assert.Equal(t, "$39.45", entry.Price)
	assert.Equal(t, 39.45, entry.PriceNumeric)
	assert.Equal(t, "https://www.silver.com/i/eagle-large.jpg", entry.ImageURL)
	assert.Equal(t, "SLV-ASE-1OZ", entry.SKU)
	assert.Equal(t, product.InStock, entry.Availability)
	assert.Contains(t, entry.Description, "official silver bullion coin")
}

func TestProductDetailsTextPriceAndAvailability(t *testing.T) {
	const html = `<html><body>
<h1>5 oz Silver Bar</h1>
<p class="price"><span class="woocommerce-Price-amount amount">$1,234.56</span></p>
<p>This item is currently Out of Stock.</p>
</body></html>`
	ref := product.MustParseRef("https://www.silver.com/5-oz-silver-bar/")
	entry := productDetails(doc(t, html), ref)

	assert.Equal(t, "$1,234.56", entry.Price)
	assert.Equal(t, 1234.56, entry.PriceNumeric)
	assert.Equal(t, product.OutOfStock, entry.Availability)
}

func TestProductDetailsExcludesNonProductPage(t *testing.T) {
	ref := product.MustParseRef("https://www.silver.com/not-a-product/")
	entry := productDetails(doc(t, "<html><body><p>nothing here</p></body></html>"), ref)
	assert.NotEqual(t, "", entry.ExcludedReason)
}
