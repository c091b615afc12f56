package gcpmetadata

import (
	"context"
	"strings"
)

// Instance fetches the instance resource. The options argument works
// like in [*Client.Get].
func (c *Client) Instance(ctx context.Context, options any) (any, error) {
	return c.Get(ctx, ResourceInstance, options)
}

// Project fetches the project resource. The options argument works
// like in [*Client.Get].
func (c *Client) Project(ctx context.Context, options any) (any, error) {
	return c.Get(ctx, ResourceProject, options)
}

// Universe fetches the universe resource. The options argument works
// like in [*Client.Get].
func (c *Client) Universe(ctx context.Context, options any) (any, error) {
	return c.Get(ctx, ResourceUniverse, options)
}

// text fetches a property of the given resource as a string.
func (c *Client) text(ctx context.Context, resource, property string) (string, error) {
	value, err := c.Get(ctx, resource, property)
	if err != nil {
		return "", err
	}
	return valueToString(value), nil
}

// ProjectID returns the project ID.
func (c *Client) ProjectID(ctx context.Context) (string, error) {
	return c.text(ctx, ResourceProject, "project-id")
}

// NumericProjectID returns the numeric project ID as a string of
// digits, even when it exceeds float64 precision.
func (c *Client) NumericProjectID(ctx context.Context) (string, error) {
	return c.text(ctx, ResourceProject, "numeric-project-id")
}

// Hostname returns the instance hostname.
func (c *Client) Hostname(ctx context.Context) (string, error) {
	return c.text(ctx, ResourceInstance, "hostname")
}

// InstanceID returns the unique instance ID as a string of digits.
func (c *Client) InstanceID(ctx context.Context) (string, error) {
	return c.text(ctx, ResourceInstance, "id")
}

// Zone returns the instance zone, e.g. "us-central1-b". The service
// returns the zone as "projects/NNN/zones/us-central1-b" and we keep
// the last path segment only.
func (c *Client) Zone(ctx context.Context) (string, error) {
	zone, err := c.text(ctx, ResourceInstance, "zone")
	if err != nil {
		return "", err
	}
	if idx := strings.LastIndex(zone, "/"); idx >= 0 {
		zone = zone[idx+1:]
	}
	return zone, nil
}

// InstanceAttribute returns the value of the named instance attribute.
func (c *Client) InstanceAttribute(ctx context.Context, attr string) (string, error) {
	return c.text(ctx, ResourceInstance, "attributes/"+attr)
}

// ProjectAttribute returns the value of the named project attribute.
func (c *Client) ProjectAttribute(ctx context.Context, attr string) (string, error) {
	return c.text(ctx, ResourceProject, "attributes/"+attr)
}
