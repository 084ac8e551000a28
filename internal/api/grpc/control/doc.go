// Package control implements the gRPC transport of the vibration alarm.
//
// The service is described by hand over protobuf well-known types, so no
// generated code is needed: SendCommand takes a StringValue and GetState an
// Empty, and both answer with a Struct carrying the controller snapshot.
package control
