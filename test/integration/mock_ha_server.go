// Package integration runs the climate card against a mock Home Assistant
// websocket server. This file re-exports types from pkg/testutil.
package integration

import (
	"thermostatui/pkg/testutil"
)

type MockHAServer = testutil.MockHAServer
type EntityState = testutil.EntityState
type ServiceCall = testutil.ServiceCall
type TestEnv = testutil.TestEnv

var NewTestEnv = testutil.NewTestEnv
var NewMockHAServer = testutil.NewMockHAServer

var FilterServiceCalls = testutil.FilterServiceCalls
var FindServiceCallWithData = testutil.FindServiceCallWithData
var FindServiceCallWithEntityID = testutil.FindServiceCallWithEntityID
var Services = testutil.Services
