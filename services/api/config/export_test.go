package config

// NewViper exposes the default viper instance for tests.
var NewViper = newViper
