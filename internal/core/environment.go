package core

// Environment is the deployment environment the gateway runs in.
type Environment string

const (
	DevelopmentEnv Environment = "development"
	ProductionEnv  Environment = "production"
)

// ParseEnvironment maps an arbitrary string onto a known environment,
// defaulting to production.
func ParseEnvironment(s string) Environment {
	if Environment(s) == DevelopmentEnv {
		return DevelopmentEnv
	}
	return ProductionEnv
}

func (e Environment) IsProduction() bool {
	return e == ProductionEnv
}

func (e Environment) IsDevelopment() bool {
	return e == DevelopmentEnv
}
