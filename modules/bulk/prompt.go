package bulk

import (
	"fmt"
	"strings"

	"quel-catalog-server/modules/common/model"
)

func groupingPrompt(imageURLs []string) string {
	var sb strings.Builder
	sb.WriteString("You are organizing raw product photos for an online fashion store.\n")
	sb.WriteString("The images below are labeled \"Image 1\" to \"Image ")
	sb.WriteString(fmt.Sprint(len(imageURLs)))
	sb.WriteString("\" and each label is followed by its URL.\n\n")
	sb.WriteString("Tasks:\n")
	sb.WriteString("1. Cluster images that show the same physical product, regardless of angle or color variant.\n")
	sb.WriteString("2. Give each cluster a short product name and a category (for example: t-shirts, hoodies, pants, dresses, shoes, accessories).\n")
	sb.WriteString("3. Pick one image per cluster as the primary image.\n\n")
	sb.WriteString("Respond with a JSON array only, no prose:\n")
	sb.WriteString(`[{"id":"group-1","name":"...","category":"...","mainImage":"<url>","images":["<url>", "..."]}]`)
	sb.WriteString("\n\nUse the exact URLs below. Every image must appear in exactly one group.\n\n")
	for i, url := range imageURLs {
		fmt.Fprintf(&sb, "Image %d: %s\n", i+1, url)
	}
	return sb.String()
}

func backgroundRemovalPrompt(group model.ProductGroup) string {
	return fmt.Sprintf(
		"Remove the background from this product photo of %q. Keep the product exactly as it is, "+
			"centered, on a clean pure white background with a soft natural shadow. Do not add props or text.",
		group.Name)
}

func lifestylePrompt(group model.ProductGroup) string {
	return fmt.Sprintf(
		"Create a realistic lifestyle photo featuring this exact %s product (%q) in a natural, "+
			"well-lit everyday setting that fits the category. Keep the product's shape, color and details unchanged. "+
			"No text, no logos, no watermarks.",
		group.Category, group.Name)
}

func productPrompt(group model.ProductGroup, imageCount int) string {
	return fmt.Sprintf(`You write catalog copy for an online fashion store.
Product draft:
- working name: %s
- category: %s
- number of photos: %d

Respond with a JSON object only:
{"name":"<short customer-facing product name>","description":"<2-3 sentence product description>","suggestedSizes":["S","M","L","XL"],"gender":"men|women|unisex|kids"}`,
		group.Name, group.Category, imageCount)
}

func defaultDescription(group model.ProductGroup) string {
	category := strings.ReplaceAll(group.Category, "-", " ")
	if category == "" || category == defaultCategory {
		return fmt.Sprintf("%s. Details, sizing and pricing to be confirmed before publishing.", group.Name)
	}
	return fmt.Sprintf("%s from our %s collection. Details, sizing and pricing to be confirmed before publishing.", group.Name, category)
}
