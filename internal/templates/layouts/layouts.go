package layouts

// SidebarLink is one sidebar entry. Defined here to avoid importing the
// shell package.
type SidebarLink struct {
	Path string
	Name string
	Icon string
}

// Languages offered by the navbar selector.
var Languages = []struct {
	Code  string
	Label string
}{
	{"en", "English"},
	{"so", "Somali"},
}
