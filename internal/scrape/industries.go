package scrape

// industryTag names a detectable technology or certification and the
// lowercase text patterns that indicate it.
type industryTag struct {
	name     string
	patterns []string
}

// baseTechnologyTags are scanned regardless of industry.
var baseTechnologyTags = []industryTag{
	{name: "WordPress", patterns: []string{"wp-content", "wordpress"}},
	{name: "Shopify", patterns: []string{"cdn.shopify.com", "shopify"}},
	{name: "React", patterns: []string{"react-dom", "data-reactroot"}},
	{name: "Google Analytics", patterns: []string{"googletagmanager", "google-analytics"}},
	{name: "HubSpot", patterns: []string{"hubspot", "hs-script"}},
	{name: "Salesforce", patterns: []string{"salesforce", "pardot"}},
}

// technologyTagsByIndustry extends the base set per industry tag.
var technologyTagsByIndustry = map[string][]industryTag{
	"software": {
		{name: "Kubernetes", patterns: []string{"kubernetes", "k8s"}},
		{name: "AWS", patterns: []string{"amazon web services", "aws cloud"}},
		{name: "Docker", patterns: []string{"docker", "containerized"}},
	},
	"manufacturing": {
		{name: "CNC Machining", patterns: []string{"cnc machining", "cnc milling"}},
		{name: "Injection Molding", patterns: []string{"injection molding", "injection moulding"}},
		{name: "3D Printing", patterns: []string{"3d printing", "additive manufacturing"}},
	},
	"healthcare": {
		{name: "EHR", patterns: []string{"electronic health record", "ehr system"}},
		{name: "Telemedicine", patterns: []string{"telemedicine", "telehealth"}},
	},
	"ecommerce": {
		{name: "Magento", patterns: []string{"magento"}},
		{name: "WooCommerce", patterns: []string{"woocommerce"}},
		{name: "Stripe", patterns: []string{"stripe.com", "powered by stripe"}},
	},
}

// baseCertificationTags are scanned regardless of industry.
var baseCertificationTags = []industryTag{
	{name: "ISO 9001", patterns: []string{"iso 9001", "iso9001"}},
	{name: "ISO 27001", patterns: []string{"iso 27001", "iso27001"}},
	{name: "SOC 2", patterns: []string{"soc 2", "soc2"}},
}

// certificationTagsByIndustry extends the base set per industry tag.
var certificationTagsByIndustry = map[string][]industryTag{
	"software": {
		{name: "GDPR", patterns: []string{"gdpr compliant", "gdpr-compliant"}},
		{name: "PCI DSS", patterns: []string{"pci dss", "pci-dss"}},
	},
	"manufacturing": {
		{name: "ISO 14001", patterns: []string{"iso 14001", "iso14001"}},
		{name: "AS9100", patterns: []string{"as9100"}},
		{name: "ITAR", patterns: []string{"itar registered", "itar compliant"}},
	},
	"healthcare": {
		{name: "HIPAA", patterns: []string{"hipaa"}},
		{name: "FDA Registered", patterns: []string{"fda registered", "fda-registered"}},
	},
	"ecommerce": {
		{name: "PCI DSS", patterns: []string{"pci dss", "pci-dss"}},
	},
}

func technologyTags(industry string) []industryTag {
	return append(append([]industryTag{}, baseTechnologyTags...), technologyTagsByIndustry[industry]...)
}

func certificationTags(industry string) []industryTag {
	return append(append([]industryTag{}, baseCertificationTags...), certificationTagsByIndustry[industry]...)
}
