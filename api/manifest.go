package api

// RepositoryConfig is the top-level schema of the .github/chart-publisher.yaml
// file stored in chart repositories. Every field is optional.
type RepositoryConfig struct {
	Repository Repository `yaml:"repository"`
}

// Repository groups the per-repository publishing settings.
type Repository struct {
	Chart        ChartSettings       `yaml:"chart"`
	Release      ReleaseSettings     `yaml:"release"`
	Commit       CommitSettings      `yaml:"commit"`
	Index        IndexSettings       `yaml:"index"`
	Registry     RegistrySettings    `yaml:"registry"`
	Applications ApplicationSettings `yaml:"applications"`
}

// ChartSettings locates charts and controls how many packaged versions are
// kept in each chart's metadata.
type ChartSettings struct {
	Path     string          `yaml:"path"`
	Packages PackageSettings `yaml:"packages"`
}

// PackageSettings controls metadata retention. Zero keeps every version.
type PackageSettings struct {
	Retention int `yaml:"retention"`
}

// ReleaseSettings holds Go templates rendered with the chart's name,
// version, appVersion and description.
type ReleaseSettings struct {
	Title string `yaml:"title"`
	Notes string `yaml:"notes"`
}

// CommitSettings holds the commit message template; {{ .Type }} is the kind
// of file being committed.
type CommitSettings struct {
	Message string `yaml:"message"`
}

// IndexSettings locates the aggregated repository index.
type IndexSettings struct {
	Path string `yaml:"path"`
}

// RegistrySettings enables OCI publishing when Host is set. The password is
// never stored in the file; PasswordEnv names the variable holding it.
type RegistrySettings struct {
	Host        string `yaml:"host"`
	Namespace   string `yaml:"namespace"`
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"passwordEnv"`
	PlainHTTP   bool   `yaml:"plainHTTP"`
}

// ApplicationSettings names the Argo CD Application manifest kept in each
// chart directory.
type ApplicationSettings struct {
	File string `yaml:"file"`
}
