package main

import (
	"invocation-adapter/pkg/lambda"
	"invocation-adapter/pkg/server"
)

func main() {
	lambda.StartNamed(server.FunctionEcho, server.NewConnectionManager())
}
