/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package device

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/powerscan/pkg/credentials"
	"github.com/carverauto/powerscan/pkg/models"
	"github.com/carverauto/powerscan/pkg/protocol"
)

const (
	defaultDescriptorPath = "/product.xml"
	maxDescriptorBytes    = 1 << 20
)

// productDescriptor is the XML-PDC product document served by network
// management cards.
type productDescriptor struct {
	XMLName  xml.Name           `xml:"PRODUCT_INFO"`
	Name     string             `xml:"name,attr"`
	Type     string             `xml:"type,attr"`
	Version  string             `xml:"version,attr"`
	Protocol string             `xml:"protocol,attr"`
	Device   string             `xml:"device,attr"`
	Objects  []descriptorObject `xml:"OBJECT"`
	Sensors  []descriptorSensor `xml:"SENSORS>SENSOR"`
}

type descriptorObject struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type descriptorSensor struct {
	Name    string             `xml:"name,attr"`
	Type    string             `xml:"type,attr"`
	Objects []descriptorObject `xml:"OBJECT"`
}

var descriptorKeys = map[string]string{
	"UPS.PowerSummary.iProduct":      "model",
	"UPS.PowerSummary.iManufacturer": "manufacturer",
	"UPS.PowerSummary.iSerialNumber": "serial_number",
	"PDU.PowerSummary.iProduct":      "model",
	"PDU.PowerSummary.iManufacturer": "manufacturer",
	"PDU.PowerSummary.iSerialNumber": "serial_number",
	"System.Firmware":                "firmware",
}

// DescriptorReader fetches the product descriptor over HTTP.
type DescriptorReader struct {
	Client      *http.Client
	Path        string
	Credentials credentials.Store
}

var _ Reader = (*DescriptorReader)(nil)

func (d *DescriptorReader) Read(ctx context.Context, address string, kind protocol.Kind, port int, ref CredentialRef) (*Record, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	if port <= 0 {
		port = kind.DefaultPort()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url(address, port), http.NoBody)
	if err != nil {
		return nil, err
	}

	if err := d.authorize(ctx, req, ref); err != nil {
		return nil, err
	}

	resp, err := d.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("descriptor request %s: %w", address, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: %d", ErrDescriptorStatus, address, resp.StatusCode)
	}

	var desc productDescriptor
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxDescriptorBytes)).Decode(&desc); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor from %s: %w", address, err)
	}

	rec := recordFromDescriptor(&desc)
	rec.AddMIB(kind.String())
	rec.AddAttribute("ip_address", address, false)

	return rec, nil
}

func (d *DescriptorReader) url(address string, port int) string {
	scheme := "http"
	if port == protocol.Powercom.DefaultPort() {
		scheme = "https"
	}

	path := d.Path
	if path == "" {
		path = defaultDescriptorPath
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return scheme + "://" + net.JoinHostPort(address, strconv.Itoa(port)) + path
}

// authorize adds basic auth for user/password credentials. Community refs
// carry nothing HTTP can use and the request goes out anonymously.
func (d *DescriptorReader) authorize(ctx context.Context, req *http.Request, ref CredentialRef) error {
	if ref.CredentialID == "" {
		return nil
	}

	if d.Credentials == nil {
		return fmt.Errorf("%w: %s", credentials.ErrCredentialNotFound, ref.CredentialID)
	}

	cred, err := d.Credentials.Get(ctx, ref.CredentialID)
	if err != nil {
		return err
	}

	if cred.Type != models.CredentialUserPass {
		return fmt.Errorf("%w: %s is %s", ErrCredentialTypeMismatch, cred.ID, cred.Type)
	}

	req.SetBasicAuth(cred.Username, cred.Password)

	return nil
}

func (d *DescriptorReader) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}

	return &http.Client{Timeout: 10 * time.Second}
}

func recordFromDescriptor(desc *productDescriptor) *Record {
	rec := &Record{
		Family: FamilyNUT,
		Name:   desc.Name,
		Type:   descriptorType(desc),
	}

	rec.AddAttribute("card_type", desc.Type, true)
	rec.AddAttribute("card_version", desc.Version, true)

	if desc.Protocol != "" {
		rec.AddMIB(desc.Protocol)
	}

	for _, o := range desc.Objects {
		key, ok := descriptorKeys[o.Name]
		if !ok {
			key = o.Name
		}

		value := strings.TrimSpace(o.Value)
		rec.AddAttribute(key, value, true)

		if key == "model" && value != "" {
			rec.Name = value
		}
	}

	for i, s := range desc.Sensors {
		sensor := Sensor{Name: s.Name, Type: TypeSensor, Subtype: s.Type}
		if sensor.Name == "" {
			sensor.Name = ambientPrefix + strconv.Itoa(i+1)
		}

		for _, o := range s.Objects {
			if v := strings.TrimSpace(o.Value); v != "" {
				sensor.Attributes = append(sensor.Attributes, NewAttribute(o.Name, v, true))
			}
		}

		rec.Sensors = append(rec.Sensors, sensor)
	}

	return rec
}

func descriptorType(desc *productDescriptor) string {
	if desc.Device != "" {
		return NormalizeType(desc.Device)
	}

	for _, o := range desc.Objects {
		switch {
		case strings.HasPrefix(o.Name, "PDU."):
			return TypeEPDU
		case strings.HasPrefix(o.Name, "ATS."), strings.HasPrefix(o.Name, "STS."):
			return TypeSTS
		}
	}

	return TypeUPS
}
