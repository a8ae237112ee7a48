package watcher

// Field locators are tried strictly in order; the first selector that yields
// non-empty text wins. Earlier entries are the precise, site-specific
// patterns; later entries are the generic fallbacks that keep extraction
// working on unknown boards.

var titleLocators = []string{
	"[data-testid*='job-title']",
	"[data-test*='job-title']",
	".job-title", ".posting-title", ".position-title",
	".job-details-jobs-unified-top-card__job-title",
	"h1.title", "h1[class*='job']", "h1[class*='title']",
	"h1",
}

var companyLocators = []string{
	"[data-testid*='company']",
	"[data-test*='company']",
	".company-name", ".employer-name", ".hiring-organization",
	".job-details-jobs-unified-top-card__company-name",
	"[class*='company'] a", "[class*='company']",
	"[itemprop='hiringOrganization']",
}

var locationLocators = []string{
	"[data-testid*='location']",
	"[data-test*='location']",
	".job-location", ".posting-location", ".location",
	"[class*='location']",
	"[itemprop='jobLocation']",
}

var descriptionLocators = []string{
	"[data-testid*='job-description']",
	"[data-test*='job-description']",
	".job-description", ".posting-description", ".description",
	".jobs-description__content",
	"[class*='description']",
	"[itemprop='description']",
	"article", "main", "[role='main']",
}

var listingTypeLocators = []string{
	"[data-testid*='employment-type']",
	".employment-type", ".job-type", ".workplace-type",
	"[class*='employment']", "[class*='job-type']",
	"[itemprop='employmentType']",
}

var salaryLocators = []string{
	"[data-testid*='salary']",
	".salary", ".compensation", ".pay-range",
	"[class*='salary']", "[class*='compensation']",
	"[itemprop='baseSalary']",
}
