// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sops seals archived documents with SOPS envelope encryption
package sops

import (
	"encoding/json"
	"errors"
	"fmt"

	sopsapi "github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/aes"
	sopsage "github.com/getsops/sops/v3/age"
	scommon "github.com/getsops/sops/v3/cmd/sops/common"
	"github.com/getsops/sops/v3/config"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/getsops/sops/v3/gcpkms"
	skeys "github.com/getsops/sops/v3/keys"
	awskms "github.com/getsops/sops/v3/kms"
	jsonstore "github.com/getsops/sops/v3/stores/json"
	"github.com/getsops/sops/v3/version"
)

// ErrNoMasterKeys is returned by Encrypt when no master key is configured
var ErrNoMasterKeys = errors.New(
	"SOPS requires at least one master key to encrypt: configure age recipients, a GCP KMS resource ID or AWS KMS key ARNs",
)

// KeyConfig names the master keys used for encryption. Decryption finds its
// keys through the usual SOPS mechanisms such as SOPS_AGE_KEY or cloud
// credentials
type KeyConfig struct {
	AgeRecipients    string `yaml:"ageRecipients" envconfig:"SOPS_AGE_RECIPIENTS"`
	GCPKMSResourceID string `yaml:"gcpKmsResourceId" envconfig:"SOPS_GCP_KMS_RESOURCE_ID"`
	AWSKMSKeyARNs    string `yaml:"awsKmsKeyArns" envconfig:"SOPS_AWS_KMS_KEY_ARNS"`
	AWSKMSProfile    string `yaml:"awsKmsProfile" envconfig:"SOPS_AWS_KMS_PROFILE"`
}

// Enabled reports whether any master key is configured
func (c KeyConfig) Enabled() bool {
	return c.AgeRecipients != "" || c.GCPKMSResourceID != "" || c.AWSKMSKeyARNs != ""
}

// Decrypt opens a document sealed by Encrypt
func Decrypt(data []byte) ([]byte, error) {
	return decrypt.Data(data, "binary")
}

// IsEncrypted reports whether data is a SOPS document
func IsEncrypted(data []byte) bool {
	var doc struct {
		Sops json.RawMessage `json:"sops"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}
	return len(doc.Sops) > 0
}

// Encrypt seals data under a fresh data key wrapped by every configured
// master key
func Encrypt(data []byte, keyConfig KeyConfig) ([]byte, error) {
	if IsEncrypted(data) {
		return nil, errors.New("already encrypted")
	}
	keyGroups, err := masterKeyGroups(keyConfig)
	if err != nil {
		return nil, err
	}
	store := jsonstore.NewBinaryStore(&config.JSONBinaryStoreConfig{})
	branches, err := store.LoadPlainFile(data)
	if err != nil {
		return nil, fmt.Errorf("load plaintext: %w", err)
	}
	tree := sopsapi.Tree{
		Branches: branches,
		Metadata: sopsapi.Metadata{
			KeyGroups: keyGroups,
			Version:   version.Version,
		},
	}
	dataKey, errs := tree.GenerateDataKey()
	if len(errs) > 0 {
		return nil, fmt.Errorf("generate data key: %w", errors.Join(errs...))
	}
	opts := scommon.EncryptTreeOpts{
		DataKey: dataKey,
		Tree:    &tree,
		Cipher:  aes.NewCipher(),
	}
	if err := scommon.EncryptTree(opts); err != nil {
		return nil, fmt.Errorf("encrypt tree: %w", err)
	}
	encrypted, err := store.EmitEncryptedFile(tree)
	if err != nil {
		return nil, fmt.Errorf("emit encrypted document: %w", err)
	}
	return encrypted, nil
}

// keyGroup converts provider specific keys into a SOPS key group
func keyGroup[K skeys.MasterKey](keys []K) sopsapi.KeyGroup {
	ret := make(sopsapi.KeyGroup, 0, len(keys))
	for _, k := range keys {
		ret = append(ret, k)
	}
	return ret
}

// masterKeyGroups builds one key group per configured provider. Any single
// group can decrypt the data key
func masterKeyGroups(keyConfig KeyConfig) ([]sopsapi.KeyGroup, error) {
	var groups []sopsapi.KeyGroup
	add := func(g sopsapi.KeyGroup) {
		if len(g) > 0 {
			groups = append(groups, g)
		}
	}
	if keyConfig.AgeRecipients != "" {
		ageKeys, err := sopsage.MasterKeysFromRecipients(keyConfig.AgeRecipients)
		if err != nil {
			return nil, fmt.Errorf("parse age recipients: %w", err)
		}
		add(keyGroup(ageKeys))
	}
	if keyConfig.GCPKMSResourceID != "" {
		add(keyGroup(gcpkms.MasterKeysFromResourceIDString(keyConfig.GCPKMSResourceID)))
	}
	if keyConfig.AWSKMSKeyARNs != "" {
		add(keyGroup(awskms.MasterKeysFromArnString(
			keyConfig.AWSKMSKeyARNs,
			nil,
			keyConfig.AWSKMSProfile,
		)))
	}
	if len(groups) == 0 {
		return nil, ErrNoMasterKeys
	}
	return groups, nil
}
