package metrics

import "strings"

const metricPrefix = "quizbank_"

// MetricName prefixes name with the module namespace unless already present.
func MetricName(name string) string {
	if strings.HasPrefix(name, metricPrefix) {
		return name
	}
	return metricPrefix + name
}

// MetricNameWithSubsystem builds quizbank_<subsystem>_<name>.
func MetricNameWithSubsystem(subsystem, name string) string {
	subsystem = strings.Trim(subsystem, "_")
	if subsystem == "" {
		return MetricName(name)
	}
	if name == "" {
		return metricPrefix + subsystem
	}
	return metricPrefix + subsystem + "_" + strings.TrimPrefix(name, metricPrefix)
}
