package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           imaged API
// @version         1.0
// @description     HTTP API for local generative-image model serving.
//
// @contact.name   imaged maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
