package alarm

// resourceTypeLabels maps Ceilometer meter names to display labels.
var resourceTypeLabels = map[string]string{
	"cpu_util":                    "CPU",
	"memory_util":                 "RAM",
	"disk_util":                   "Disk",
	"network.incoming.bytes.rate": "Incoming Network Traffic",
	"network.outgoing.bytes.rate": "Outgoing Network Traffic",
}

// operatorLabels maps threshold rule comparison operators to display labels.
var operatorLabels = map[string]string{
	"lt": "Less than",
	"le": "Less than or equal to",
	"eq": "Equal to",
	"ne": "Not equal to",
	"ge": "Greater than or equal to",
	"gt": "Greater than",
}

// ResourceTypeLabel returns the display label for a meter, or "" if the meter
// is not one the notifier knows how to describe.
func ResourceTypeLabel(meterName string) string {
	return resourceTypeLabels[meterName]
}

// OperatorLabel returns the display label for a comparison operator, or "".
func OperatorLabel(op string) string {
	return operatorLabels[op]
}
