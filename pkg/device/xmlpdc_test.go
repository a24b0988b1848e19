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
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/carverauto/powerscan/pkg/credentials"
	"github.com/carverauto/powerscan/pkg/models"
	"github.com/carverauto/powerscan/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productXML = `<?xml version="1.0" encoding="UTF-8"?>
<PRODUCT_INFO name="Network Management Card" type="Mosaic M2" version="1.4.2" protocol="XML.V4">
  <OBJECT name="UPS.PowerSummary.iProduct">Eaton 5PX</OBJECT>
  <OBJECT name="UPS.PowerSummary.iManufacturer">EATON</OBJECT>
  <OBJECT name="UPS.PowerSummary.iSerialNumber"> G202F12 </OBJECT>
  <OBJECT name="UPS.PowerSummary.Empty"></OBJECT>
  <SENSORS>
    <SENSOR name="EMP01" type="temperature">
      <OBJECT name="temperature">21.0</OBJECT>
    </SENSOR>
    <SENSOR type="humidity"/>
  </SENSORS>
</PRODUCT_INFO>`

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return port
}

func TestDescriptorReader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/product.xml" {
			http.NotFound(w, r)
			return
		}

		if user, pass, ok := r.BasicAuth(); ok && (user != "admin" || pass != "secret") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(productXML))
	}))
	t.Cleanup(srv.Close)

	store := credentials.NewStaticStore([]models.Credential{
		{ID: "card", Type: models.CredentialUserPass, Username: "admin", Password: "secret"},
		{ID: "bad", Type: models.CredentialUserPass, Username: "admin", Password: "nope"},
		{ID: "snmp", Type: models.CredentialSNMPv2c, Community: "public"},
	})

	r := &DescriptorReader{Credentials: store}
	port := serverPort(t, srv)

	rec, err := r.Read(context.Background(), "127.0.0.1", protocol.XMLPDC, port, CredentialRef{CredentialID: "card"})
	require.NoError(t, err)

	assert.Equal(t, "Eaton 5PX", rec.Name)
	assert.Equal(t, TypeUPS, rec.Type)
	assert.Equal(t, FamilyNUT, rec.Family)
	assert.Equal(t, []string{"XML.V4", "nut_xml_pdc"}, rec.MIBs)
	assert.Equal(t, "G202F12", attrValue(rec.Attributes, "serial_number"))
	assert.Equal(t, "EATON", attrValue(rec.Attributes, "manufacturer"))
	assert.Equal(t, "Mosaic M2", attrValue(rec.Attributes, "card_type"))
	assert.Empty(t, attrValue(rec.Attributes, "UPS.PowerSummary.Empty"))

	require.Len(t, rec.Sensors, 2)
	assert.Equal(t, "EMP01", rec.Sensors[0].Name)
	assert.Equal(t, "21.0", attrValue(rec.Sensors[0].Attributes, "temperature"))
	assert.Equal(t, "ambient.2", rec.Sensors[1].Name)
	assert.Equal(t, "humidity", rec.Sensors[1].Subtype)

	_, err = r.Read(context.Background(), "127.0.0.1", protocol.XMLPDC, port, CredentialRef{Community: "public"})
	require.NoError(t, err)

	_, err = r.Read(context.Background(), "127.0.0.1", protocol.XMLPDC, port, CredentialRef{CredentialID: "bad"})
	require.ErrorIs(t, err, ErrDescriptorStatus)

	_, err = r.Read(context.Background(), "127.0.0.1", protocol.XMLPDC, port, CredentialRef{CredentialID: "snmp"})
	require.ErrorIs(t, err, ErrCredentialTypeMismatch)

	missing := &DescriptorReader{Path: "/missing.xml"}
	_, err = missing.Read(context.Background(), "127.0.0.1", protocol.XMLPDC, port, CredentialRef{Community: "public"})
	require.ErrorIs(t, err, ErrDescriptorStatus)
}

func TestDescriptorTypeFromObjects(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TypeEPDU, descriptorType(&productDescriptor{Objects: []descriptorObject{{Name: "PDU.PowerSummary.iProduct"}}}))
	assert.Equal(t, TypeSTS, descriptorType(&productDescriptor{Objects: []descriptorObject{{Name: "ATS.Input"}}}))
	assert.Equal(t, TypeEPDU, descriptorType(&productDescriptor{Device: "pdu"}))
	assert.Equal(t, TypeUPS, descriptorType(&productDescriptor{}))
}
