package db

import (
	"fmt"
)

// DBConfigFromYamlObj builds the runtime DB config from the yaml representation,
// assembling the connection URI from its parts.
func DBConfigFromYamlObj(yamlObj DBConfigYaml, tenantIDs []string) DBConfig {
	uri := yamlObj.ConnectionStr
	if yamlObj.Username != "" {
		uri = fmt.Sprintf(`mongodb%s://%s:%s@%s`, yamlObj.ConnectionPrefix, yamlObj.Username, yamlObj.Password, yamlObj.ConnectionStr)
	}

	return DBConfig{
		URI:              uri,
		DBNamePrefix:     yamlObj.DBNamePrefix,
		Timeout:          yamlObj.Timeout,
		NoCursorTimeout:  yamlObj.UseNoCursorTimeout,
		MaxPoolSize:      uint64(yamlObj.MaxPoolSize),
		IdleConnTimeout:  yamlObj.IdleConnTimeout,
		TenantIDs:        tenantIDs,
		RunIndexCreation: yamlObj.RunIndexCreation,
	}
}
