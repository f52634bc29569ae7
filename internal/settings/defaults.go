package settings

// Compiled-in defaults, used whenever a list has no stored value and seeded
// into the store at first boot.

var defaultTargetKeywords = []string{
	"Software Engineer",
	"Software Developer",
	"Backend",
	"Full Stack",
	"FullStack",
	"Java",
	"Python",
	"New Grad",
	"Entry Level Software Engineer",
	"Associate Software Engineer",
	"Junior Software Developer",
	"Junior Software Engineer",
	"SWE",
	"Entry Level Software Developer",
}

var defaultTargetLocations = []string{"United States"}

var defaultBlockedCompanies = []string{
	"Infosys",
	"Wipro",
	"TCS",
	"Wiraa",
	"BeaconFire Inc.",
	"FetchJobs.co",
	"Cognizant",
	"HCL",
	"Tech Mahindra",
	"LTI",
	"Mphasis",
	"Capgemini",
	"Accenture",
	"DXC Technology",
	"NTT Data",
	"Mindtree",
	"Virtusa",
	"Hexaware Technologies",
	"Zensurance",
	"Bespoke Technologies, Inc.",
	"Trinity Technology Solutions LLC",
	"The Swift Group, LLC",
	"Nesco Resource",
	"Egotechworld",
	"Jobs via Dice",
	"Lensa",
	"Best Job Tool",
	"Robert Half",
	"Hirenza",
	"UHS Physician Careers",
	"Tekskills Inc.",
	"Randstad Digital Americas",
	"CEO Foundry LLC",
	"TRANSREACH TALENT LLC",
	"TalentAlly",
	"WayUp",
	"RemoteHunter",
}

var defaultTitleFilterKeywords = []string{
	"senior",
	"principal",
	"manager",
	"staff",
	"sr.",
	"lead",
	"director",
	"nurse",
	"therapist",
	"veterinarian",
}

// Default returns a copy of the compiled-in default for name, nil for an
// unknown name.
func Default(name string) []string {
	var src []string
	switch name {
	case TargetKeywords:
		src = defaultTargetKeywords
	case TargetLocations:
		src = defaultTargetLocations
	case BlockedCompanies:
		src = defaultBlockedCompanies
	case TitleFilterKeywords:
		src = defaultTitleFilterKeywords
	default:
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
