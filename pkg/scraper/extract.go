package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/zcamper/silver-scraper/pkg/product"
)

// The storefront is WooCommerce, so extraction leans on its standard
// markup, with schema.org microdata preferred where present.

var displayedPrices = regexp.MustCompile(`\$[\d,]+\.?\d*`)

// lastPrice deals with price ranges ("$29.82 – $34.50"): the site
// shows the as-low-as price last, which is the one worth recording.
func lastPrice(text string) string {
	if strings.Count(text, "$") <= 1 {
		return text
	}
	if all := displayedPrices.FindAllString(text, -1); len(all) > 0 {
		return all[len(all)-1]
	}
	return text
}

// listingProducts extracts the product tiles from a category page.
// The infos are partial: a tile only carries name, price and image.
func listingProducts(doc *goquery.Document, base product.Ref) []product.Info {
	var products []product.Info
	seen := map[string]bool{}

	doc.Find(".product, .type-product, .products .product").Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a[href]").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		ref, err := product.ResolveRef(base, href)
		if err != nil || seen[ref.String()] {
			return
		}
		seen[ref.String()] = true

		name := strings.TrimSpace(item.Find(".woocommerce-loop-product__title, h2, h3").First().Text())
		if name == "" {
			name = strings.TrimSpace(link.Text())
		}
		// Tiny link texts are sale badges and the like, not titles.
		if len(name) <= 3 {
			return
		}

		price := strings.TrimSpace(item.Find(".price .woocommerce-Price-amount, .price .amount, .price").First().Text())
		price = lastPrice(price)

		var image string
		if img := item.Find("img").First(); img.Length() > 0 {
			image, _ = img.Attr("src")
			if image == "" {
				image, _ = img.Attr("data-src")
			}
		}

		info := product.Info{
			URL:      ref,
			Name:     name,
			ImageURL: image,
		}
		if v, ok := product.ParsePrice(price); ok {
			info.Price = price
			info.PriceNumeric = v
		}
		products = append(products, info)
	})

	return products
}

// nextPageURL returns the canonical URL of the next listing page, or
// "" when the pagination runs out.
func nextPageURL(doc *goquery.Document, base product.Ref) string {
	link := doc.Find(".woocommerce-pagination a.next, a.next.page-numbers, .pagination a.next").First()
	href, ok := link.Attr("href")
	if !ok {
		return ""
	}
	ref, err := product.ResolveRef(base, href)
	if err != nil {
		return ""
	}
	return ref.String()
}

// productDetails extracts a product detail page. A page without even
// a product name is excluded rather than recorded half-empty.
func productDetails(doc *goquery.Document, ref product.Ref) ProductEntry {
	name := strings.TrimSpace(doc.Find("h1").First().Text())
	if name == "" {
		entry := ProductEntry{}
		entry.ExcludedReason = "page carries no product (no title found)"
		return entry
	}

	info := product.Info{URL: ref, Name: name}
	info.Price, info.PriceNumeric = extractPrice(doc)
	info.ImageURL = extractImage(doc)
	info.SKU = extractSKU(doc)
	info.Availability = extractAvailability(doc)
	if desc := strings.TrimSpace(doc.Find(".woocommerce-product-details__short-description, [itemprop=\"description\"], .product-short-description").First().Text()); desc != "" {
		info.Description = product.TruncateDescription(desc)
	}
	return ProductEntry{Info: info}
}

// extractPrice tries the microdata/OpenGraph price first, then the
// WooCommerce price markup.
func extractPrice(doc *goquery.Document) (string, float64) {
	if meta := doc.Find(`meta[itemprop="price"], meta[property="product:price:amount"]`).First(); meta.Length() > 0 {
		if content, ok := meta.Attr("content"); ok && content != "" {
			if v, err := strconv.ParseFloat(content, 64); err == nil {
				return product.FormatPrice(v), v
			}
		}
	}

	el := doc.Find(`[itemprop="price"], .woocommerce-Price-amount, .price ins .amount, .price .amount, .summary .price`).First()
	if el.Length() == 0 {
		return "", 0
	}
	if content, ok := el.Attr("content"); ok && content != "" {
		if v, err := strconv.ParseFloat(content, 64); err == nil {
			return product.FormatPrice(v), v
		}
	}
	text := lastPrice(strings.TrimSpace(el.Text()))
	if v, ok := product.ParsePrice(text); ok {
		return text, v
	}
	return "", 0
}

func extractImage(doc *goquery.Document) string {
	if meta := doc.Find(`meta[property="og:image"]`).First(); meta.Length() > 0 {
		if content, ok := meta.Attr("content"); ok && content != "" {
			return content
		}
	}
	img := doc.Find(".woocommerce-product-gallery img, img.wp-post-image").First()
	src, _ := img.Attr("src")
	return src
}

func extractSKU(doc *goquery.Document) string {
	el := doc.Find(`[itemprop="sku"], .sku`).First()
	if el.Length() == 0 {
		return ""
	}
	if content, ok := el.Attr("content"); ok && content != "" {
		return content
	}
	return strings.TrimSpace(el.Text())
}

// extractAvailability reads the schema.org availability if present,
// and otherwise sweeps the page text for a recognisable state.
func extractAvailability(doc *goquery.Document) product.Availability {
	if el := doc.Find(`[itemprop="availability"]`).First(); el.Length() > 0 {
		value, _ := el.Attr("content")
		if value == "" {
			value, _ = el.Attr("href")
		}
		if value == "" {
			value = el.Text()
		}
		switch {
		case strings.Contains(value, "InStock"):
			return product.InStock
		case strings.Contains(value, "OutOfStock"):
			return product.OutOfStock
		case strings.Contains(value, "PreOrder"):
			return product.PreOrder
		}
	}

	text := doc.Text()
	for _, state := range product.AvailabilityStates {
		if strings.Contains(text, string(state)) {
			return state
		}
	}
	return product.Unknown
}
