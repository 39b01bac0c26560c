package testutil

import "time"

// ServiceCall records a service call received by the mock server
type ServiceCall struct {
	Timestamp   time.Time
	Domain      string
	Service     string
	ServiceData map[string]interface{}
}

// Temperature returns the numeric "temperature" field of the call, if any.
// JSON numbers arrive as float64.
func (c ServiceCall) Temperature() (float64, bool) {
	v, ok := c.ServiceData["temperature"].(float64)
	return v, ok
}

// FilterServiceCalls filters service calls by domain and service
func FilterServiceCalls(calls []ServiceCall, domain, service string) []ServiceCall {
	var filtered []ServiceCall
	for _, call := range calls {
		if call.Domain == domain && call.Service == service {
			filtered = append(filtered, call)
		}
	}
	return filtered
}

// FindServiceCallWithData finds the latest service call with matching data key/value
func FindServiceCallWithData(calls []ServiceCall, domain, service, dataKey string, dataValue interface{}) *ServiceCall {
	for i := len(calls) - 1; i >= 0; i-- {
		call := calls[i]
		if call.Domain == domain && call.Service == service {
			if val, ok := call.ServiceData[dataKey]; ok && val == dataValue {
				return &call
			}
		}
	}
	return nil
}

// FindServiceCallWithEntityID finds the latest service call for a specific entity
func FindServiceCallWithEntityID(calls []ServiceCall, domain, service, entityID string) *ServiceCall {
	return FindServiceCallWithData(calls, domain, service, "entity_id", entityID)
}

// Services lists calls as "domain.service" in the order they arrived
func Services(calls []ServiceCall) []string {
	out := make([]string, 0, len(calls))
	for _, call := range calls {
		out = append(out, call.Domain+"."+call.Service)
	}
	return out
}
