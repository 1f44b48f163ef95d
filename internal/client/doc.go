// Package client fetches step components from a Chutney server and
// normalizes the step implementation carried by each leaf component.
//
// The server exposes every component at GET /api/steps/v1/all as a JSON
// array. Parent components carry child "steps" and no task; leaf components
// carry a raw step implementation in "task", either inline or as a JSON
// encoded string.
package client
